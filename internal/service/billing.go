package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/manicinc/synthstack-gateway/internal/gate"
	"github.com/manicinc/synthstack-gateway/internal/models"
	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// Strategy names the pricing formula applied to an operation. Workflow runs
// and ML endpoint calls are priced by deliberately separate formulas.
type Strategy string

const (
	StrategyEndpoint Strategy = "endpoint"
	StrategyWorkflow Strategy = "workflow"
)

// ParseStrategy defaults unrecognized values to the endpoint formula.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == StrategyWorkflow {
		return StrategyWorkflow
	}
	return StrategyEndpoint
}

// Ledger is the slice of the ledger repository the billing service needs.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Debit(ctx context.Context, tx *models.CreditTransaction) (bool, error)
}

// BillingService orchestrates the credit flow around a metered request:
// pre-flight estimate and gate before the operation runs, actual charge and
// idempotent ledger debit after it completes. Pricing itself stays in the
// pure pricing package; this service owns the persistence edges.
type BillingService struct {
	ledger       Ledger
	endpoint     *pricing.EndpointPricer
	workflow     *pricing.WorkflowPricer
	endpointGate *gate.Gate
	workflowGate *gate.Gate
}

func NewBillingService(ledger Ledger, table *pricing.Table, components pricing.ComponentTable) *BillingService {
	endpoint := pricing.NewEndpointPricer(table)
	workflow := pricing.NewWorkflowPricer(table, components)
	return &BillingService{
		ledger:       ledger,
		endpoint:     endpoint,
		workflow:     workflow,
		endpointGate: gate.New(endpoint),
		workflowGate: gate.New(workflow),
	}
}

func (s *BillingService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.ledger.Balance(ctx, userID)
}

// Estimate prices an operation before it runs.
func (s *BillingService) Estimate(strategy Strategy, operationID string, t tier.Tier, h pricing.Hints) pricing.Breakdown {
	switch strategy {
	case StrategyWorkflow:
		return s.workflow.Estimate(operationID, t, h)
	default:
		return s.endpoint.Estimate(operationID, t, h)
	}
}

// Check reads the user's balance and gates the operation against it.
func (s *BillingService) Check(ctx context.Context, strategy Strategy, operationID string, t tier.Tier, userID uuid.UUID, h pricing.Hints) (gate.Decision, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return gate.Decision{}, fmt.Errorf("failed to read balance: %w", err)
	}

	g := s.endpointGate
	if strategy == StrategyWorkflow {
		g = s.workflowGate
	}

	return g.Check(operationID, t, balance, h), nil
}

// ChargeInput is the post-execution telemetry for one metered request.
type ChargeInput struct {
	RequestID   string
	UserID      uuid.UUID
	OperationID string
	Tier        tier.Tier
	Strategy    Strategy
	DurationMs  int64
	StatusCode  int
	Hints       pricing.Hints
}

// Charge computes the actual cost and applies it to the ledger. Failed
// operations compute to zero and produce no ledger row. Charging the same
// request id twice debits once; the second call reports applied=false.
func (s *BillingService) Charge(ctx context.Context, in ChargeInput) (pricing.Breakdown, bool, error) {
	var b pricing.Breakdown
	switch in.Strategy {
	case StrategyWorkflow:
		b = s.workflow.Actual(in.OperationID, in.Tier, in.DurationMs, in.StatusCode, in.Hints)
	default:
		b = s.endpoint.Actual(in.OperationID, in.Tier, in.DurationMs, in.StatusCode, in.Hints)
	}

	if b.TotalCost == 0 {
		return b, false, nil
	}

	tx := &models.CreditTransaction{
		RequestID:   in.RequestID,
		UserID:      in.UserID,
		OperationID: in.OperationID,
		Tier:        in.Tier.String(),
		Amount:      -b.TotalCost,
		Breakdown:   b.Summary,
		StatusCode:  in.StatusCode,
		DurationMs:  in.DurationMs,
		CreatedAt:   time.Now(),
	}

	applied, err := s.ledger.Debit(ctx, tx)
	if err != nil {
		return b, false, fmt.Errorf("failed to record charge: %w", err)
	}

	return b, applied, nil
}
