//go:build integration

package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/dukex/automation/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{
		"automation_continuations", "automation_messages", "automation_templates", "automation_rules",
		"variants", "products", "incases", "webforms", "clients", "tenant_users", "tenants",
		"schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("automation_test"),
			postgres.WithUsername("automation"),
			postgres.WithPassword("automation"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func testRule(id string, position int) *models.Rule {
	now := time.Now().UTC().Truncate(time.Microsecond)

	return &models.Rule{
		ID:       id,
		TenantID: "t1",
		Title:    "rule " + id,
		Event:    "incase_created",
		Active:   true,
		Position: position,
		Steps: []*models.Step{
			{
				ID:   "s1",
				Kind: models.StepKindCondition,
				Condition: &models.ConditionSpec{
					Mode:       models.ConditionModeStructured,
					Conditions: []models.Condition{{Field: "incase.status", Operator: models.OperatorEquals, Value: "new"}},
				},
				OnTrue: "s2",
			},
			{
				ID:     "s2",
				Kind:   models.StepKindAction,
				Action: &models.Action{ID: "a1", Kind: models.ActionKindSendEmail, Value: "tpl"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))
}

func TestRuleRepository(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.Rules().Save(ctx, testRule("r2", 2)))
	require.NoError(t, p.Rules().Save(ctx, testRule("r1", 1)))

	inactive := testRule("r3", 0)
	inactive.Active = false
	require.NoError(t, p.Rules().Save(ctx, inactive))

	rules, err := p.Rules().ActiveByEvent(ctx, "t1", "incase_created")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID)
	assert.Equal(t, "r2", rules[1].ID)
	require.Len(t, rules[0].Steps, 2)
	assert.Equal(t, "s2", rules[0].Steps[0].OnTrue)
	assert.Equal(t, models.ActionKindSendEmail, rules[0].Steps[1].Action.Kind)

	at := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	require.NoError(t, p.Rules().UpdateSchedule(ctx, "t1", "r1", &at, "job-1"))

	rule, err := p.Rules().GetByID(ctx, "t1", "r1")
	require.NoError(t, err)
	require.NotNil(t, rule.ScheduledFor)
	assert.True(t, at.Equal(*rule.ScheduledFor))
	assert.Equal(t, "job-1", rule.JobHandle)

	_, err = p.Rules().GetByID(ctx, "t2", "r1")
	assert.True(t, persistence.IsRuleNotFound(err))

	err = p.Rules().UpdateSchedule(ctx, "t1", "missing", nil, "")
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestTemplateRepository(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.Templates().Save(ctx, &models.Template{ID: "tpl", TenantID: "t1", Subject: "Hi", Body: "Hello"}))

	tpl, err := p.Templates().Find(ctx, "t1", "tpl")
	require.NoError(t, err)
	assert.Equal(t, "Hello", tpl.Body)

	_, err = p.Templates().Find(ctx, "t2", "tpl")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestMessageRepository(t *testing.T) {
	p, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Microsecond)
	ids := make([]string, 0, 3)

	for i := range 3 {
		id := uuid.Must(uuid.NewV7()).String()
		ids = append(ids, id)

		require.NoError(t, p.Messages().Create(ctx, &models.Message{
			ID:        id,
			TenantID:  "t1",
			RuleID:    "r1",
			Recipient: "a@example.com",
			Channel:   models.ChannelEmail,
			Status:    models.MessageStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
		}))
	}

	err := p.Messages().Create(ctx, &models.Message{
		ID: ids[0], TenantID: "t1", Recipient: "x", Channel: models.ChannelEmail,
		Status: models.MessageStatusPending, CreatedAt: base, UpdatedAt: base,
	})
	assert.ErrorIs(t, err, persistence.ErrMessageAlreadyExists)

	msg, err := p.Messages().GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.NoError(t, msg.MarkSent("mailer", "ext-1", base.Add(time.Minute)))
	require.NoError(t, p.Messages().Update(ctx, msg))

	msg, err = p.Messages().GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusSent, msg.Status)
	assert.Equal(t, "ext-1", msg.ProviderMessageID)
	require.NotNil(t, msg.SentAt)

	result, err := p.Messages().List(ctx, persistence.ListMessagesOptions{TenantID: "t1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.True(t, result.HasNextPage)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, ids[2], result.Messages[0].ID)

	result, err = p.Messages().List(ctx, persistence.ListMessagesOptions{TenantID: "t1", Status: models.MessageStatusSent})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount)
	assert.False(t, result.HasNextPage)

	_, err = p.Messages().GetByID(ctx, uuid.NewString())
	assert.True(t, persistence.IsMessageNotFound(err))
}

func TestContinuationRepository(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.Rules().Save(ctx, testRule("r1", 0)))

	now := time.Now().UTC().Truncate(time.Microsecond)
	continuation := &models.Continuation{
		RuleID:       "r1",
		TenantID:     "t1",
		ResumeStepID: "s2",
		Context: models.ContextRefs{
			Event:    "incase_created",
			Subject:  models.Reference{Type: models.EntityIncase, ID: "i1"},
			Entities: map[string]string{models.EntityClient: "c1"},
		},
		ExpectedAt: now.Add(time.Hour),
		JobHandle:  "job-1",
		CreatedAt:  now,
	}
	require.NoError(t, p.Continuations().Save(ctx, continuation))

	continuation.JobHandle = "job-2"
	require.NoError(t, p.Continuations().Save(ctx, continuation))

	stored, err := p.Continuations().GetByRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "job-2", stored.JobHandle)
	assert.Equal(t, "i1", stored.Context.Subject.ID)
	assert.Equal(t, "c1", stored.Context.Entities[models.EntityClient])

	deleted, err := p.Continuations().DeleteIfHandle(ctx, "r1", "job-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = p.Continuations().DeleteIfHandle(ctx, "r1", "job-2")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = p.Continuations().GetByRule(ctx, "r1")
	assert.True(t, persistence.IsContinuationNotFound(err))
}

func TestTenantAndEntityRepositories(t *testing.T) {
	p, ctx := setupTestDB(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	tenants := postgresql.NewTenantRepository(p.DB(), logger)

	require.NoError(t, tenants.Save(ctx, &models.Tenant{
		ID:   "t1",
		Name: "Shop",
		SMS:  models.SMSConfig{SMSRu: &models.SMSRuConfig{APIKey: "key"}},
		Bot:  &models.BotConfig{Token: "bot-token"},
	}))

	_, err := p.DB().ExecContext(ctx, `
		INSERT INTO tenant_users (tenant_id, id, name, email) VALUES ('t1', 'u1', 'Ann', 'ann@example.com');
		INSERT INTO clients (tenant_id, id, name, email, subscribed) VALUES ('t1', 'c1', 'Bob', 'bob@example.com', TRUE);
		INSERT INTO incases (tenant_id, id, number, status, total, client_id) VALUES ('t1', 'i1', '42', 'new', 19.90, 'c1');
		INSERT INTO products (tenant_id, id, title) VALUES ('t1', 'p1', 'Mug');
		INSERT INTO variants (tenant_id, id, product_id, quantity, price) VALUES ('t1', 'v1', 'p1', 3, 9.5);
	`)
	require.NoError(t, err)

	tenant, err := p.Tenants().Tenant(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, tenant.SMS.SMSRu.Configured())
	assert.True(t, tenant.Bot.Configured())
	assert.Nil(t, tenant.Personal)

	users, err := p.Tenants().Users(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ann@example.com", users[0].Email)

	incase, err := p.Entities().Incase(ctx, "t1", "i1")
	require.NoError(t, err)
	assert.InDelta(t, 19.90, incase.Total, 0.001)
	assert.Equal(t, "c1", incase.ClientID)

	variant, err := p.Entities().Variant(ctx, "t1", "v1")
	require.NoError(t, err)
	assert.Equal(t, 3, variant.Quantity)

	require.NoError(t, p.Entities().UpdateIncaseStatus(ctx, "t1", "i1", "paid"))

	incase, err = p.Entities().Incase(ctx, "t1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "paid", incase.Status)

	_, err = p.Entities().Client(ctx, "t1", "missing")
	assert.True(t, persistence.IsNotFound(err))

	_, err = p.Tenants().Tenant(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrTenantNotFound)
}
