package models

import "time"

// Incase is a lead or order captured through a webform.
type Incase struct {
	ID        string    `json:"id"         yaml:"id"`
	TenantID  string    `json:"tenant_id"  yaml:"tenant_id"`
	Number    string    `json:"number"     yaml:"number"`
	Status    string    `json:"status"     yaml:"status"`
	Total     float64   `json:"total"      yaml:"total"`
	Paid      bool      `json:"paid"       yaml:"paid"`
	Comment   string    `json:"comment"    yaml:"comment"`
	ClientID  string    `json:"client_id"  yaml:"client_id"`
	WebformID string    `json:"webform_id" yaml:"webform_id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	Client  *Client  `json:"-" yaml:"-"`
	Webform *Webform `json:"-" yaml:"-"`
}

type Client struct {
	ID         string    `json:"id"          yaml:"id"`
	TenantID   string    `json:"tenant_id"   yaml:"tenant_id"`
	Name       string    `json:"name"        yaml:"name"`
	Surname    string    `json:"surname"     yaml:"surname"`
	Email      string    `json:"email"       yaml:"email"`
	Phone      string    `json:"phone"       yaml:"phone"`
	BotChatID  string    `json:"bot_chat_id" yaml:"bot_chat_id"`
	Username   string    `json:"username"    yaml:"username"`
	Subscribed bool      `json:"subscribed"  yaml:"subscribed"`
	CreatedAt  time.Time `json:"created_at"  yaml:"created_at"`
}

type Webform struct {
	ID       string `json:"id"        yaml:"id"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Kind     string `json:"kind"      yaml:"kind"`
	Title    string `json:"title"     yaml:"title"`
}

type Variant struct {
	ID        string  `json:"id"         yaml:"id"`
	TenantID  string  `json:"tenant_id"  yaml:"tenant_id"`
	ProductID string  `json:"product_id" yaml:"product_id"`
	SKU       string  `json:"sku"        yaml:"sku"`
	Title     string  `json:"title"      yaml:"title"`
	Quantity  int     `json:"quantity"   yaml:"quantity"`
	Price     float64 `json:"price"      yaml:"price"`

	Product *Product `json:"-" yaml:"-"`
}

type Product struct {
	ID       string `json:"id"        yaml:"id"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Title    string `json:"title"     yaml:"title"`
	URL      string `json:"url"       yaml:"url"`
}
