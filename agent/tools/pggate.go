package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/harborins/concierge/agent/contract"
)

// PostgresGatewayConfig configures the bun-backed policy-data gateway.
type PostgresGatewayConfig struct {
	DSN           string        `envconfig:"DSN" split_words:"true" required:"true"`
	QueryTimeout  time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"5s"`
	MaxOpenConns  int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
	GeneralAnswer string        `envconfig:"GENERAL_ANSWER" split_words:"true" default:"Thanks for reaching out. A licensed agent can help with questions beyond your policy records."`
}

// Policy is one row of the policies table.
type Policy struct {
	bun.BaseModel `bun:"table:policies,alias:p"`

	PolicyNumber string  `bun:"policy_number,pk"`
	CustomerID   string  `bun:"customer_id"`
	PolicyType   string  `bun:"policy_type"`
	Status       string  `bun:"status"`
	Premium      float64 `bun:"premium"`
}

// Coverage is one coverage line of a policy.
type Coverage struct {
	bun.BaseModel `bun:"table:coverages,alias:c"`

	ID           int64   `bun:"id,pk,autoincrement"`
	CustomerID   string  `bun:"customer_id"`
	PolicyNumber string  `bun:"policy_number"`
	CoverageType string  `bun:"coverage_type"`
	LimitAmount  float64 `bun:"limit_amount"`
	Deductible   float64 `bun:"deductible"`
}

// PaymentDue is one upcoming premium payment.
type PaymentDue struct {
	bun.BaseModel `bun:"table:payments,alias:pay"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CustomerID   string    `bun:"customer_id"`
	PolicyNumber string    `bun:"policy_number"`
	DueDate      time.Time `bun:"due_date"`
	Amount       float64   `bun:"amount"`
	Status       string    `bun:"status"`
}

// Agent is the assigned agent for a customer.
type Agent struct {
	bun.BaseModel `bun:"table:agents,alias:a"`

	ID         int64  `bun:"id,pk,autoincrement"`
	CustomerID string `bun:"customer_id"`
	Name       string `bun:"name"`
	Phone      string `bun:"phone"`
	Email      string `bun:"email"`
}

// Claim is one claim record.
type Claim struct {
	bun.BaseModel `bun:"table:claims,alias:cl"`

	ClaimNumber string    `bun:"claim_number,pk"`
	CustomerID  string    `bun:"customer_id"`
	Status      string    `bun:"status"`
	FiledAt     time.Time `bun:"filed_at"`
	Description string    `bun:"description"`
}

// PostgresGateway serves the catalog operations from Postgres. It is the
// reference implementation of the tool subsystem used by deployments that
// keep policy data in-house instead of behind the remote gateway.
type PostgresGateway struct {
	db            *bun.DB
	queryTimeout  time.Duration
	generalAnswer string
}

var _ contractx.ToolGateway = (*PostgresGateway)(nil)

// NewPostgresGateway opens a pgdriver connection and wraps it with bun.
func NewPostgresGateway(cfg PostgresGatewayConfig) (*PostgresGateway, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &PostgresGateway{
		db:            db,
		queryTimeout:  timeout,
		generalAnswer: strings.TrimSpace(cfg.GeneralAnswer),
	}, nil
}

// Close releases the underlying connection pool.
func (g *PostgresGateway) Close() error {
	return g.db.Close()
}

// Call dispatches one catalog operation against the database. Row
// absence maps to not_found, driver failures to transient.
func (g *PostgresGateway) Call(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	if err := ValidateArgs(operation, args); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	switch operation {
	case OpGetCustomerPolicies:
		return g.customerPolicies(ctx, stringArg(args, "customer_id"), stringArg(args, "policy_type"))
	case OpGetCoverageLimits:
		return g.coverageLimits(ctx, stringArg(args, "customer_id"))
	case OpGetPaymentSchedule:
		return g.paymentSchedule(ctx, stringArg(args, "customer_id"))
	case OpGetAgentContact:
		return g.agentContact(ctx, stringArg(args, "customer_id"))
	case OpGetClaimStatus:
		return g.claimStatus(ctx, stringArg(args, "customer_id"), stringArg(args, "claim_number"))
	case OpGeneralInquiry:
		return map[string]any{"answer": g.generalAnswer}, nil
	default:
		return nil, contractx.NewToolError(contractx.ToolErrInvalidRequest, operation,
			fmt.Errorf("%w: %s", contractx.ErrUnknownOperation, operation))
	}
}

func (g *PostgresGateway) customerPolicies(ctx context.Context, customerID, policyType string) (map[string]any, error) {
	var policies []Policy
	q := g.db.NewSelect().
		Model(&policies).
		Where("p.customer_id = ?", customerID).
		Order("p.policy_number ASC")
	if policyType != "" {
		q = q.Where("p.policy_type = ?", policyType)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, g.classify(OpGetCustomerPolicies, err)
	}
	if len(policies) == 0 {
		return nil, contractx.NewToolError(contractx.ToolErrNotFound, OpGetCustomerPolicies,
			fmt.Errorf("no policies for customer %s", customerID))
	}

	payload := policiesPayload(policies)

	// The policies payload carries the assigned agent when one exists,
	// so single-step plans still learn the contact.
	var agent Agent
	err := g.db.NewSelect().Model(&agent).Where("a.customer_id = ?", customerID).Limit(1).Scan(ctx)
	if err == nil {
		payload["agent"] = agentPayload(agent)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, g.classify(OpGetCustomerPolicies, err)
	}

	return payload, nil
}

func (g *PostgresGateway) coverageLimits(ctx context.Context, customerID string) (map[string]any, error) {
	var coverages []Coverage
	err := g.db.NewSelect().
		Model(&coverages).
		Where("c.customer_id = ?", customerID).
		Order("c.policy_number ASC", "c.coverage_type ASC").
		Scan(ctx)
	if err != nil {
		return nil, g.classify(OpGetCoverageLimits, err)
	}
	if len(coverages) == 0 {
		return nil, contractx.NewToolError(contractx.ToolErrNotFound, OpGetCoverageLimits,
			fmt.Errorf("no coverages for customer %s", customerID))
	}

	return coveragesPayload(coverages), nil
}

func (g *PostgresGateway) paymentSchedule(ctx context.Context, customerID string) (map[string]any, error) {
	var payments []PaymentDue
	err := g.db.NewSelect().
		Model(&payments).
		Where("pay.customer_id = ?", customerID).
		Order("pay.due_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, g.classify(OpGetPaymentSchedule, err)
	}
	if len(payments) == 0 {
		return nil, contractx.NewToolError(contractx.ToolErrNotFound, OpGetPaymentSchedule,
			fmt.Errorf("no payment schedule for customer %s", customerID))
	}

	return paymentsPayload(payments), nil
}

func (g *PostgresGateway) agentContact(ctx context.Context, customerID string) (map[string]any, error) {
	var agent Agent
	err := g.db.NewSelect().Model(&agent).Where("a.customer_id = ?", customerID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contractx.NewToolError(contractx.ToolErrNotFound, OpGetAgentContact,
				fmt.Errorf("no agent assigned to customer %s", customerID))
		}
		return nil, g.classify(OpGetAgentContact, err)
	}
	return map[string]any{"agent": agentPayload(agent)}, nil
}

func (g *PostgresGateway) claimStatus(ctx context.Context, customerID, claimNumber string) (map[string]any, error) {
	var claims []Claim
	q := g.db.NewSelect().
		Model(&claims).
		Where("cl.customer_id = ?", customerID).
		Order("cl.filed_at DESC")
	if claimNumber != "" {
		q = q.Where("cl.claim_number = ?", claimNumber)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, g.classify(OpGetClaimStatus, err)
	}
	if len(claims) == 0 {
		return nil, contractx.NewToolError(contractx.ToolErrNotFound, OpGetClaimStatus,
			fmt.Errorf("no claims for customer %s", customerID))
	}

	return claimsPayload(claims), nil
}

// Row-to-payload mapping. Kept free of database handles so the wire
// shapes each operation emits stay directly checkable.

func policiesPayload(policies []Policy) map[string]any {
	list := make([]any, 0, len(policies))
	for _, p := range policies {
		list = append(list, map[string]any{
			"policy_number": p.PolicyNumber,
			"policy_type":   p.PolicyType,
			"status":        p.Status,
			"premium":       p.Premium,
		})
	}
	return map[string]any{"policies": list}
}

func coveragesPayload(coverages []Coverage) map[string]any {
	list := make([]any, 0, len(coverages))
	for _, c := range coverages {
		list = append(list, map[string]any{
			"policy_number": c.PolicyNumber,
			"coverage_type": c.CoverageType,
			"limit_amount":  c.LimitAmount,
			"deductible":    c.Deductible,
		})
	}
	return map[string]any{"coverages": list}
}

func paymentsPayload(payments []PaymentDue) map[string]any {
	list := make([]any, 0, len(payments))
	for _, p := range payments {
		list = append(list, map[string]any{
			"policy_number": p.PolicyNumber,
			"due_date":      p.DueDate.Format("2006-01-02"),
			"amount":        p.Amount,
			"status":        p.Status,
		})
	}
	return map[string]any{"payments": list}
}

func claimsPayload(claims []Claim) map[string]any {
	list := make([]any, 0, len(claims))
	for _, c := range claims {
		list = append(list, map[string]any{
			"claim_number": c.ClaimNumber,
			"status":       c.Status,
			"filed_at":     c.FiledAt.Format("2006-01-02"),
			"description":  c.Description,
		})
	}
	return map[string]any{"claims": list}
}

func (g *PostgresGateway) classify(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return contractx.NewToolError(contractx.ToolErrTransient, operation, err)
}

func agentPayload(a Agent) map[string]any {
	return map[string]any{
		"name":  a.Name,
		"phone": a.Phone,
		"email": a.Email,
	}
}

func stringArg(args map[string]any, name string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[name].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
