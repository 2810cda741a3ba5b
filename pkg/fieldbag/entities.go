package fieldbag

import (
	"strings"

	"github.com/dukex/automation/pkg/models"
)

func init() {
	Register(models.EntityIncase, Accessors[*models.Incase]{
		Fields: map[string]func(*models.Incase) any{
			"id":         func(e *models.Incase) any { return e.ID },
			"number":     func(e *models.Incase) any { return e.Number },
			"status":     func(e *models.Incase) any { return e.Status },
			"total":      func(e *models.Incase) any { return e.Total },
			"paid":       func(e *models.Incase) any { return e.Paid },
			"comment":    func(e *models.Incase) any { return e.Comment },
			"client_id":  func(e *models.Incase) any { return e.ClientID },
			"webform_id": func(e *models.Incase) any { return e.WebformID },
			"created_at": func(e *models.Incase) any { return e.CreatedAt },
			"updated_at": func(e *models.Incase) any { return e.UpdatedAt },
			"client":     func(e *models.Incase) any { return e.Client },
			"webform":    func(e *models.Incase) any { return e.Webform },
		},
		Predicates: map[string]func(*models.Incase) bool{
			"paid":       func(e *models.Incase) bool { return e.Paid },
			"new":        func(e *models.Incase) bool { return e.Status == "new" },
			"has_client": func(e *models.Incase) bool { return e.ClientID != "" || e.Client != nil },
		},
	})

	Register(models.EntityClient, Accessors[*models.Client]{
		Fields: map[string]func(*models.Client) any{
			"id":          func(e *models.Client) any { return e.ID },
			"name":        func(e *models.Client) any { return e.Name },
			"surname":     func(e *models.Client) any { return e.Surname },
			"full_name":   func(e *models.Client) any { return strings.TrimSpace(e.Name + " " + e.Surname) },
			"email":       func(e *models.Client) any { return e.Email },
			"phone":       func(e *models.Client) any { return e.Phone },
			"bot_chat_id": func(e *models.Client) any { return e.BotChatID },
			"username":    func(e *models.Client) any { return e.Username },
			"subscribed":  func(e *models.Client) any { return e.Subscribed },
			"created_at":  func(e *models.Client) any { return e.CreatedAt },
		},
		Predicates: map[string]func(*models.Client) bool{
			"subscribed": func(e *models.Client) bool { return e.Subscribed },
			"email":      func(e *models.Client) bool { return strings.TrimSpace(e.Email) != "" },
			"phone":      func(e *models.Client) bool { return strings.TrimSpace(e.Phone) != "" },
			"bot":        func(e *models.Client) bool { return e.BotChatID != "" },
		},
	})

	Register(models.EntityWebform, Accessors[*models.Webform]{
		Fields: map[string]func(*models.Webform) any{
			"id":    func(e *models.Webform) any { return e.ID },
			"kind":  func(e *models.Webform) any { return e.Kind },
			"title": func(e *models.Webform) any { return e.Title },
		},
		Predicates: map[string]func(*models.Webform) bool{
			"order": func(e *models.Webform) bool { return e.Kind == "order" },
		},
	})

	Register(models.EntityVariant, Accessors[*models.Variant]{
		Fields: map[string]func(*models.Variant) any{
			"id":         func(e *models.Variant) any { return e.ID },
			"sku":        func(e *models.Variant) any { return e.SKU },
			"title":      func(e *models.Variant) any { return e.Title },
			"quantity":   func(e *models.Variant) any { return e.Quantity },
			"price":      func(e *models.Variant) any { return e.Price },
			"product_id": func(e *models.Variant) any { return e.ProductID },
			"product":    func(e *models.Variant) any { return e.Product },
		},
		Predicates: map[string]func(*models.Variant) bool{
			"in_stock": func(e *models.Variant) bool { return e.Quantity > 0 },
		},
	})

	Register(models.EntityProduct, Accessors[*models.Product]{
		Fields: map[string]func(*models.Product) any{
			"id":    func(e *models.Product) any { return e.ID },
			"title": func(e *models.Product) any { return e.Title },
			"url":   func(e *models.Product) any { return e.URL },
		},
	})

	Register(models.EntityUser, Accessors[*models.User]{
		Fields: map[string]func(*models.User) any{
			"id":    func(e *models.User) any { return e.ID },
			"name":  func(e *models.User) any { return e.Name },
			"email": func(e *models.User) any { return e.Email },
			"phone": func(e *models.User) any { return e.Phone },
			"role":  func(e *models.User) any { return e.Role },
		},
		Predicates: map[string]func(*models.User) bool{
			"admin": func(e *models.User) bool { return e.Role == "admin" },
		},
	})

	Register(models.EntityAutomationMessage, Accessors[*models.Message]{
		Fields: map[string]func(*models.Message) any{
			"id":                  func(e *models.Message) any { return e.ID },
			"channel":             func(e *models.Message) any { return string(e.Channel) },
			"status":              func(e *models.Message) any { return string(e.Status) },
			"subject":             func(e *models.Message) any { return e.Subject },
			"content":             func(e *models.Message) any { return e.Content },
			"recipient":           func(e *models.Message) any { return e.Recipient },
			"provider":            func(e *models.Message) any { return e.Provider },
			"provider_message_id": func(e *models.Message) any { return e.ProviderMessageID },
			"error_message":       func(e *models.Message) any { return e.ErrorMessage },
			"rule_id":             func(e *models.Message) any { return e.RuleID },
			"sent_at":             func(e *models.Message) any { return e.SentAt },
			"delivered_at":        func(e *models.Message) any { return e.DeliveredAt },
			"created_at":          func(e *models.Message) any { return e.CreatedAt },
			"incase":              func(e *models.Message) any { return e.Incase },
			"client":              func(e *models.Message) any { return e.Client },
			"user":                func(e *models.Message) any { return e.User },
		},
		Predicates: map[string]func(*models.Message) bool{
			"sent":      func(e *models.Message) bool { return e.Status == models.MessageStatusSent },
			"delivered": func(e *models.Message) bool { return e.Status == models.MessageStatusDelivered },
			"failed":    func(e *models.Message) bool { return e.Status == models.MessageStatusFailed },
		},
	})
}
