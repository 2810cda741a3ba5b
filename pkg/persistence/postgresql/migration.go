package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Tenant-authored automation configuration
			CREATE TABLE automation_rules (
				id VARCHAR(64) PRIMARY KEY,
				tenant_id VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				event VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT FALSE,
				position INTEGER NOT NULL DEFAULT 0,
				steps JSONB NOT NULL DEFAULT '[]',
				scheduled_for TIMESTAMP WITH TIME ZONE,
				job_handle VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automation_rules_lookup ON automation_rules(tenant_id, event, active, position);

			CREATE TABLE automation_templates (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				subject TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (tenant_id, id)
			);
		`,
		2: `
			-- Outbound message log and scheduler continuations
			CREATE TABLE automation_messages (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(64) NOT NULL,
				rule_id VARCHAR(64),
				action_id VARCHAR(64),
				client_id VARCHAR(64),
				user_id VARCHAR(64),
				incase_id VARCHAR(64),
				recipient VARCHAR(255) NOT NULL,
				channel VARCHAR(20) NOT NULL CHECK (channel IN ('email', 'sms', 'bot', 'personal')),
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'sent', 'delivered', 'failed')),
				subject TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				provider VARCHAR(64),
				provider_message_id VARCHAR(255),
				error_message TEXT,
				sent_at TIMESTAMP WITH TIME ZONE,
				delivered_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automation_messages_tenant ON automation_messages(tenant_id, created_at DESC);
			CREATE INDEX idx_automation_messages_status ON automation_messages(tenant_id, status);

			CREATE TABLE automation_continuations (
				rule_id VARCHAR(64) PRIMARY KEY REFERENCES automation_rules(id) ON DELETE CASCADE,
				tenant_id VARCHAR(64) NOT NULL,
				resume_step_id VARCHAR(64) NOT NULL,
				context JSONB NOT NULL,
				expected_at TIMESTAMP WITH TIME ZONE NOT NULL,
				job_handle VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
		3: `
			-- Read views over tenant and commerce data
			CREATE TABLE tenants (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				settings JSONB NOT NULL DEFAULT '{}'
			);

			CREATE TABLE tenant_users (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(64) NOT NULL DEFAULT '',
				role VARCHAR(64) NOT NULL DEFAULT '',
				PRIMARY KEY (tenant_id, id)
			);

			CREATE TABLE clients (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				surname VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(64) NOT NULL DEFAULT '',
				bot_chat_id VARCHAR(64) NOT NULL DEFAULT '',
				username VARCHAR(255) NOT NULL DEFAULT '',
				subscribed BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant_id, id)
			);

			CREATE TABLE webforms (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				kind VARCHAR(64) NOT NULL DEFAULT '',
				title VARCHAR(255) NOT NULL DEFAULT '',
				PRIMARY KEY (tenant_id, id)
			);

			CREATE TABLE incases (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				number VARCHAR(64) NOT NULL DEFAULT '',
				status VARCHAR(64) NOT NULL DEFAULT '',
				total NUMERIC(14, 2) NOT NULL DEFAULT 0,
				paid BOOLEAN NOT NULL DEFAULT FALSE,
				comment TEXT NOT NULL DEFAULT '',
				client_id VARCHAR(64) NOT NULL DEFAULT '',
				webform_id VARCHAR(64) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant_id, id)
			);

			CREATE TABLE products (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (tenant_id, id)
			);

			CREATE TABLE variants (
				tenant_id VARCHAR(64) NOT NULL,
				id VARCHAR(64) NOT NULL,
				product_id VARCHAR(64) NOT NULL DEFAULT '',
				sku VARCHAR(255) NOT NULL DEFAULT '',
				title VARCHAR(255) NOT NULL DEFAULT '',
				quantity INTEGER NOT NULL DEFAULT 0,
				price NUMERIC(14, 2) NOT NULL DEFAULT 0,
				PRIMARY KEY (tenant_id, id)
			);
		`,
	}
}
