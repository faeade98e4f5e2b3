package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Applier realizes a single node of a given resource kind. Appliers may
// consult outputs of already-realized dependencies and publish their own
// outputs for dependents.
type Applier interface {
	// Apply realizes the node and returns any outputs it produced
	Apply(ctx context.Context, node *Node, out Outputs) (map[string]string, error)
}

// ReadinessChecker evaluates readiness predicates for a realized node
type ReadinessChecker interface {
	// Check evaluates the node's readiness predicates
	Check(ctx context.Context, node *Node, predicates []ReadinessPredicate) (bool, error)
}

// ExecutorConfig contains configuration for the DAG executor
type ExecutorConfig struct {
	// MaxConcurrency is the maximum number of nodes to apply concurrently
	// Default: 10
	MaxConcurrency int

	// RetryBackoffBase is the base duration for exponential backoff
	// Default: 1 second
	RetryBackoffBase time.Duration

	// RetryBackoffMax is the maximum backoff duration
	// Default: 5 minutes
	RetryBackoffMax time.Duration

	// MaxRetries is the maximum number of retries per node
	// Default: 3
	MaxRetries int
}

// DefaultExecutorConfig returns the default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrency:   10,
		RetryBackoffBase: 1 * time.Second,
		RetryBackoffMax:  5 * time.Minute,
		MaxRetries:       3,
	}
}

// Executor executes a DAG with dependency-aware parallel execution,
// dispatching each node to the applier registered for its resource kind
type Executor struct {
	config           ExecutorConfig
	appliers         map[ResourceKind]Applier
	readinessChecker ReadinessChecker
}

// NewExecutor creates a new DAG executor
func NewExecutor(readinessChecker ReadinessChecker, config ExecutorConfig) *Executor {
	return &Executor{
		config:           config,
		appliers:         make(map[ResourceKind]Applier),
		readinessChecker: readinessChecker,
	}
}

// Register installs the applier for a resource kind, replacing any previous one
func (e *Executor) Register(kind ResourceKind, applier Applier) {
	e.appliers[kind] = applier
}

// Execute executes the DAG with dependency-aware parallel execution
func (e *Executor) Execute(ctx context.Context, dag *DAG) (*ExecutionState, error) {
	if dag == nil {
		return nil, fmt.Errorf("DAG cannot be nil")
	}

	// Every kind in the DAG must have an applier before anything is realized
	for _, id := range dag.GetOrder() {
		node, _ := dag.GetNode(id)
		kind := node.Resource.Kind()
		if _, found := e.appliers[kind]; !found {
			return nil, fmt.Errorf("no applier registered for resource kind %s (node %s)", kind, id)
		}
	}

	state := NewExecutionState(dag.GetOrder())

	// Execute nodes in waves based on dependencies
	for !state.IsComplete() {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		readyNodes := e.findReadyNodes(dag, state)
		if len(readyNodes) == 0 {
			// No nodes ready - either all done or blocked on failed dependencies
			break
		}

		e.executeNodes(ctx, dag, state, readyNodes)
	}

	state.MarkComplete()
	return state, nil
}

// findReadyNodes identifies nodes that are ready to execute.
// A node is ready if it is Pending or Error (for retry) and all of its
// dependencies are Ready.
func (e *Executor) findReadyNodes(dag *DAG, state *ExecutionState) []string {
	var ready []string

	for _, nodeID := range dag.GetOrder() {
		nodeState, _ := state.GetState(nodeID)

		if nodeState != NodeStatePending && nodeState != NodeStateError {
			continue
		}

		if nodeState == NodeStateError {
			status, _ := state.GetStatus(nodeID)
			if status.RetryCount >= e.config.MaxRetries {
				continue
			}
		}

		deps, _ := dag.GetDependencies(nodeID)
		allDepsReady := true
		for _, depID := range deps {
			depState, _ := state.GetState(depID)
			if depState != NodeStateReady {
				allDepsReady = false
				break
			}
		}

		if allDepsReady {
			ready = append(ready, nodeID)
		}
	}

	return ready
}

// executeNodes executes a batch of nodes in parallel using conc.
// Failures are recorded in state; independent nodes keep going.
func (e *Executor) executeNodes(ctx context.Context, dag *DAG, state *ExecutionState, nodeIDs []string) {
	p := pool.New().WithMaxGoroutines(e.config.MaxConcurrency)

	for _, nodeID := range nodeIDs {
		p.Go(func() {
			// Errors land in state; the wave continues
			_ = e.executeNode(ctx, dag, state, nodeID)
		})
	}

	p.Wait()
}

// executeNode executes a single node: apply, publish outputs, wait for readiness
func (e *Executor) executeNode(ctx context.Context, dag *DAG, state *ExecutionState, nodeID string) error {
	node, found := dag.GetNode(nodeID)
	if !found {
		return fmt.Errorf("node %s not found", nodeID)
	}

	currentState, _ := state.GetState(nodeID)
	if currentState == NodeStateError {
		status, _ := state.GetStatus(nodeID)
		delay := e.calculateBackoff(status.RetryCount)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := state.IncrementRetry(nodeID); err != nil {
			return err
		}
		if err := state.SetState(nodeID, NodeStatePending); err != nil {
			return err
		}
	}

	if err := state.SetState(nodeID, NodeStateApplying); err != nil {
		_ = state.SetError(nodeID, err)
		return err
	}

	applier := e.appliers[node.Resource.Kind()]
	outputs, err := applier.Apply(ctx, node, state)
	if err != nil {
		_ = state.SetError(nodeID, fmt.Errorf("failed to apply: %w", err))
		return err
	}
	state.PublishOutputs(nodeID, outputs)

	if len(node.ReadyWhen) == 0 {
		if err := state.SetState(nodeID, NodeStateReady); err != nil {
			_ = state.SetError(nodeID, err)
			return err
		}
		return nil
	}

	if err := state.SetState(nodeID, NodeStateWaitingReady); err != nil {
		_ = state.SetError(nodeID, err)
		return err
	}

	if err := e.waitForReadiness(ctx, node); err != nil {
		_ = state.SetError(nodeID, fmt.Errorf("readiness check failed: %w", err))
		return err
	}

	if err := state.SetState(nodeID, NodeStateReady); err != nil {
		_ = state.SetError(nodeID, err)
		return err
	}

	return nil
}

// waitForReadiness polls the node until all readiness predicates are satisfied
func (e *Executor) waitForReadiness(ctx context.Context, node *Node) error {
	if e.readinessChecker == nil {
		return fmt.Errorf("node %s declares readiness predicates but no checker is configured", node.ID)
	}

	// Use the maximum timeout from all predicates, or default to 5 minutes
	timeout := 5 * time.Minute
	for _, pred := range node.ReadyWhen {
		if pred.Timeout > 0 {
			predTimeout := time.Duration(pred.Timeout) * time.Second
			if predTimeout > timeout {
				timeout = predTimeout
			}
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		ready, err := e.readinessChecker.Check(timeoutCtx, node, node.ReadyWhen)
		if err != nil {
			return fmt.Errorf("readiness check error: %w", err)
		}

		if ready {
			return nil
		}

		select {
		case <-timeoutCtx.Done():
			return fmt.Errorf("readiness timeout after %v", timeout)
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * 1.5)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (e *Executor) calculateBackoff(retryCount int) time.Duration {
	backoff := time.Duration(float64(e.config.RetryBackoffBase) * math.Pow(2, float64(retryCount)))

	if backoff > e.config.RetryBackoffMax {
		backoff = e.config.RetryBackoffMax
	}

	return backoff
}
