package fabric

import (
	"context"
	"fmt"
	"time"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/monitoring"
)

// Invoker submits and evaluates chaincode transactions on behalf of a
// caller identity carried in the context.
type Invoker interface {
	// Submit sends a state-changing transaction and returns the payload.
	Submit(ctx context.Context, chaincode, function string, args ...string) ([]byte, error)
	// Evaluate runs a read-only query against a single peer.
	Evaluate(ctx context.Context, chaincode, function string, args ...string) ([]byte, error)
}

type contextKey string

const callerKey contextKey = "fabric_caller"

// WithCaller returns a context carrying the Fabric enrollment identity the
// transaction should be submitted as.
func WithCaller(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, callerKey, identity)
}

// CallerFromContext extracts the caller identity set by WithCaller.
func CallerFromContext(ctx context.Context) string {
	if identity, ok := ctx.Value(callerKey).(string); ok {
		return identity
	}
	return ""
}

// GatewayClient is the production Invoker. It maps authenticated service
// users onto Fabric enrollments and routes transactions through the peer
// gateway configured for the channel.
type GatewayClient struct {
	config *config.FabricConfig
	logger *logger.Logger
}

// NewGatewayClient creates a gateway-backed invoker
func NewGatewayClient(cfg *config.FabricConfig, log *logger.Logger) *GatewayClient {
	return &GatewayClient{
		config: cfg,
		logger: log,
	}
}

// Submit sends a state-changing transaction through the gateway
func (c *GatewayClient) Submit(ctx context.Context, chaincode, function string, args ...string) ([]byte, error) {
	start := time.Now()
	c.logger.WithFields(map[string]interface{}{
		"chaincode": chaincode,
		"function":  function,
		"caller":    CallerFromContext(ctx),
		"channel":   c.config.ChannelName,
	}).Info("Submitting transaction")

	// In a real deployment this goes through the Fabric Gateway SDK with
	// the caller's enrollment. The connection profile wiring is
	// environment-specific and lives outside this repository.
	payload, err := c.route(ctx, chaincode, function, args)

	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordChaincodeTransaction(chaincode, function, status, time.Since(start))
	return payload, err
}

// Evaluate runs a read-only query through the gateway
func (c *GatewayClient) Evaluate(ctx context.Context, chaincode, function string, args ...string) ([]byte, error) {
	start := time.Now()
	c.logger.WithFields(map[string]interface{}{
		"chaincode": chaincode,
		"function":  function,
		"caller":    CallerFromContext(ctx),
	}).Debug("Evaluating query")

	payload, err := c.route(ctx, chaincode, function, args)

	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordChaincodeTransaction(chaincode, function, status, time.Since(start))
	return payload, err
}

func (c *GatewayClient) route(ctx context.Context, chaincode, function string, args []string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	caller := CallerFromContext(ctx)
	if caller == "" {
		return nil, fmt.Errorf("no caller identity on context")
	}

	return nil, fmt.Errorf("no gateway endpoint configured for channel %s", c.config.ChannelName)
}
