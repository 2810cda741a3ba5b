package models

// Tenant is an isolated customer organization together with its channel configuration.
type Tenant struct {
	ID   string `json:"id"   yaml:"id"   validate:"required"`
	Name string `json:"name" yaml:"name"`

	EmailProvider *EmailProviderConfig `json:"email_provider,omitempty" yaml:"email_provider,omitempty"`
	SMS           SMSConfig            `json:"sms"                      yaml:"sms"`
	Bot           *BotConfig           `json:"bot,omitempty"            yaml:"bot,omitempty"`
	Personal      *PersonalConfig      `json:"personal,omitempty"       yaml:"personal,omitempty"`
}

// EmailProviderConfig is a tenant-owned transactional mail account.
type EmailProviderConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"api_key"  yaml:"api_key"`
	From     string `json:"from"     yaml:"from"`
}

func (c *EmailProviderConfig) Configured() bool {
	return c != nil && c.Endpoint != "" && c.APIKey != ""
}

type SMSConfig struct {
	SMSRu *SMSRuConfig `json:"smsru,omitempty" yaml:"smsru,omitempty"`
	SMSC  *SMSCConfig  `json:"smsc,omitempty"  yaml:"smsc,omitempty"`
}

type SMSRuConfig struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	Sender string `json:"sender"  yaml:"sender"`
}

func (c *SMSRuConfig) Configured() bool { return c != nil && c.APIKey != "" }

type SMSCConfig struct {
	Login    string `json:"login"    yaml:"login"`
	Password string `json:"password" yaml:"password"`
	Sender   string `json:"sender"   yaml:"sender"`
}

func (c *SMSCConfig) Configured() bool { return c != nil && c.Login != "" && c.Password != "" }

// BotConfig is the managed chat bot used for the first chat delivery attempt.
type BotConfig struct {
	Token string `json:"token" yaml:"token"`
}

func (c *BotConfig) Configured() bool { return c != nil && c.Token != "" }

// PersonalConfig is a personal chat account driven through the companion messaging service.
type PersonalConfig struct {
	AccountID  string `json:"account_id" yaml:"account_id"`
	Authorized bool   `json:"authorized" yaml:"authorized"`
}

func (c *PersonalConfig) Usable() bool { return c != nil && c.Authorized && c.AccountID != "" }

// User is a member of the tenant staff.
type User struct {
	ID       string `json:"id"        yaml:"id"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Name     string `json:"name"      yaml:"name"`
	Email    string `json:"email"     yaml:"email"`
	Phone    string `json:"phone"     yaml:"phone"`
	Role     string `json:"role"      yaml:"role"`
}
