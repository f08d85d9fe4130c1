// Package scheduler owns the dataflow graph's lifecycle: accepting
// new operations (Submit), running them across a fixed worker pool as
// their dependencies become satisfied, and letting a caller block
// until the whole graph has drained (Wait).
//
// One submitter (whoever calls Submit — normally a single goroutine
// reading a program line by line) and a fixed pool of workers share
// the operation table. A single "updater" goroutine is the only thing
// that ever mutates an Operation's WaitingOn, Finished and Queued
// fields once it has been submitted (the submitter only appends new
// dependents to an existing operation's Blocking list), which keeps that
// bookkeeping free of per-operation locks: only the updater and the
// submitter ever touch the table, and they serialize through the
// Scheduler's mutex.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lento/daffy/operation"
	"github.com/lento/daffy/optype"
	"github.com/lento/daffy/parser"
)

// deadlockCheckInterval bounds how long the updater will wait for a
// worker to report a completion before logging a diagnostic. It is
// purely informational: it never aborts the graph, and a healthy,
// merely slow, operation never trips it into anything worse than a
// log line.
const deadlockCheckInterval = 5 * time.Second

// DefaultWorkers is the worker pool size used when none is given.
const DefaultWorkers = 4

// AlreadyExistsError reports a Submit call naming an operation that
// has already been submitted to this Scheduler.
type AlreadyExistsError struct{ Name string }

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("scheduler: operation already exists: %q", e.Name)
}

// UnknownOperationError reports an argument referencing an operation
// name nothing has submitted yet.
type UnknownOperationError struct{ Name string }

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("scheduler: unknown operation: %q", e.Name)
}

// InvalidArgumentError reports an argument that cannot bind to the
// named operation's type: an unknown socket name, or a carrier
// operation given something other than exactly one literal.
type InvalidArgumentError struct {
	Op, Type, Arg, Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("scheduler: operation %q (%s): argument %q: %s", e.Op, e.Type, e.Arg, e.Reason)
}

// UnknownOutputError reports a reference to an output socket an
// upstream operation's type never declared.
type UnknownOutputError struct{ Op, Output string }

func (e *UnknownOutputError) Error() string {
	return fmt.Sprintf("scheduler: operation %q has no output %q", e.Op, e.Output)
}

type completionMsg struct {
	op  *operation.Operation
	err error
}

// Scheduler runs a dataflow graph built up by repeated Submit calls.
type Scheduler struct {
	registry   *optype.Registry
	numWorkers int
	logger     zerolog.Logger

	mu      sync.Mutex
	ops     map[string]*operation.Operation
	aborted bool

	errMu    sync.Mutex
	firstErr error

	wg          sync.WaitGroup // the barrier: one per executable operation submitted
	outstanding int64          // atomic: executable operations not yet finished

	queue       *opQueue
	completions chan completionMsg
	workersDone sync.WaitGroup

	eg *errgroup.Group
}

// New returns a Scheduler that resolves operation types against reg
// and runs executable operations across numWorkers workers. A
// numWorkers <= 0 uses DefaultWorkers.
func New(reg *optype.Registry, numWorkers int, logger zerolog.Logger) *Scheduler {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	return &Scheduler{
		registry:    reg,
		numWorkers:  numWorkers,
		logger:      logger,
		ops:         make(map[string]*operation.Operation),
		queue:       newOpQueue(),
		completions: make(chan completionMsg, numWorkers),
	}
}

// Start brings up the worker pool and the updater goroutine. It must
// be called once, before the first Submit.
func (s *Scheduler) Start(ctx context.Context) {
	eg, egCtx := errgroup.WithContext(ctx)
	s.eg = eg

	for i := 0; i < s.numWorkers; i++ {
		s.workersDone.Add(1)
		eg.Go(func() error {
			defer s.workersDone.Done()
			return s.runWorker(egCtx)
		})
	}
	eg.Go(func() error {
		return s.runUpdater(egCtx)
	})
}

// Close shuts the pool down. Call it only after Wait has returned and
// no further Submit calls will be made.
func (s *Scheduler) Close() error {
	s.queue.Close()
	s.workersDone.Wait()
	close(s.completions)
	if s.eg == nil {
		return nil
	}
	return s.eg.Wait()
}

// Submit adds one operation to the graph. optypeName and name come
// straight from a parsed instruction; args bind its input sockets,
// either to literal values or to another operation's named output.
func (s *Scheduler) Submit(optypeName, name string, args []parser.Arg) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.submitLocked(optypeName, name, args)
	return err
}

// submitLocked does the actual wiring; it is called both for
// top-level instructions and, recursively, to plant the synthetic
// "value" carriers a literal argument expands to (see buildExecutable).
// The caller must hold s.mu.
func (s *Scheduler) submitLocked(optypeName, name string, args []parser.Arg) (*operation.Operation, error) {
	if _, exists := s.ops[name]; exists {
		return nil, &AlreadyExistsError{Name: name}
	}

	t, err := s.registry.Find(optypeName)
	if err != nil {
		return nil, err
	}

	var op *operation.Operation
	if t.Exec == nil && len(t.Inputs) == 0 {
		op, err = s.buildCarrier(t, name, args)
	} else {
		op, err = s.buildExecutable(t, name, args)
	}
	if err != nil {
		return nil, err
	}

	s.ops[name] = op
	return op, nil
}

// buildCarrier wires a pure source operation (the builtin "value" type
// is the only one in the default catalog): it takes exactly one
// literal argument, regardless of that argument's own name, and is
// finished the instant it is submitted.
func (s *Scheduler) buildCarrier(t *optype.Type, name string, args []parser.Arg) (*operation.Operation, error) {
	if len(args) != 1 || !args[0].IsLiteral {
		return nil, &InvalidArgumentError{Op: name, Type: t.Name, Arg: argLabel(args), Reason: "a carrier operation takes exactly one literal value"}
	}
	op := operation.New(t, name, nil)
	op.SetOutput(t.Outputs[0].Name, args[0].Literal)
	op.Finished = true
	return op, nil
}

func argLabel(args []parser.Arg) string {
	if len(args) == 0 {
		return "<none>"
	}
	return args[0].Name
}

// buildExecutable wires a regular operation. A literal argument is
// never bound directly: it is expanded into its own synthetic "value"
// carrier operation, named "_{op}_arg_{i}" after its position in the
// declaration's argument list, and the input is bound to that
// carrier's output instead — so every bound input, literal or
// reference, resolves through exactly one code path. Sockets the
// caller left unbound keep the type's declared default. The finished
// operation is queued immediately if every bound source has already
// finished.
func (s *Scheduler) buildExecutable(t *optype.Type, name string, args []parser.Arg) (*operation.Operation, error) {
	for _, a := range args {
		if !hasInput(t, a.Name) {
			return nil, &InvalidArgumentError{Op: name, Type: t.Name, Arg: a.Name, Reason: "no such input socket"}
		}
	}

	byName := make(map[string]parser.Arg, len(args))
	for i, a := range args {
		if a.IsLiteral {
			helperName := fmt.Sprintf("_%s_arg_%d", name, i)
			if _, err := s.submitLocked("value", helperName, []parser.Arg{{Name: "value", IsLiteral: true, Literal: a.Literal}}); err != nil {
				return nil, err
			}
			a = parser.Arg{Name: a.Name, Target: helperName, TargetOutput: "value"}
		}
		byName[a.Name] = a
	}

	inputs := make([]operation.InputSocket, len(t.Inputs))
	for i, decl := range t.Inputs {
		inputs[i] = operation.InputSocket{Name: decl.Name, Default: decl.Default}
		a, bound := byName[decl.Name]
		if !bound {
			continue
		}
		src, ok := s.ops[a.Target]
		if !ok {
			return nil, &UnknownOperationError{Name: a.Target}
		}
		if !hasOutput(src.Type, a.TargetOutput) {
			return nil, &UnknownOutputError{Op: a.Target, Output: a.TargetOutput}
		}
		inputs[i].Source = src
		inputs[i].SourceOutput = a.TargetOutput
	}

	op := operation.New(t, name, inputs)

	if s.aborted {
		op.Finished = true
		return op, nil
	}

	s.wg.Add(1)
	atomic.AddInt64(&s.outstanding, 1)

	waiting := 0
	for i := range op.Inputs {
		src := op.Inputs[i].Source
		if src == nil || src.Finished {
			continue
		}
		waiting++
		src.Blocking = append(src.Blocking, op)
	}
	op.WaitingOn = waiting

	if waiting == 0 {
		op.Queued = true
		s.queue.Put(op)
	}
	return op, nil
}

func hasInput(t *optype.Type, name string) bool {
	for _, in := range t.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

func hasOutput(t *optype.Type, name string) bool {
	for _, out := range t.Outputs {
		if out.Name == name {
			return true
		}
	}
	return false
}

// Wait blocks until every operation submitted so far that required
// execution has finished (successfully, cancelled by an abort, or
// failed), then returns the first execution error encountered, if
// any.
func (s *Scheduler) Wait() error {
	s.wg.Wait()
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.firstErr
}

func (s *Scheduler) recordError(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.firstErr == nil {
		s.firstErr = err
	}
}

func (s *Scheduler) runWorker(ctx context.Context) error {
	for {
		op, ok := s.queue.Take()
		if !ok {
			return nil
		}
		err := runExec(op)
		select {
		case s.completions <- completionMsg{op: op, err: err}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runExec invokes an operation's type-defined Exec, converting a
// panic into an error so one bad operation never takes the worker
// pool down with it.
func runExec(op *operation.Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %q (%s) panicked: %v", op.Name, op.Type.Name, r)
		}
	}()
	if op.Type.Exec == nil {
		return nil
	}
	return op.Type.Exec(op)
}

func (s *Scheduler) runUpdater(ctx context.Context) error {
	timer := time.NewTimer(deadlockCheckInterval)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-s.completions:
			if !ok {
				return nil
			}
			s.handleCompletion(msg)
			drainTimer(timer)
			timer.Reset(deadlockCheckInterval)

		case <-timer.C:
			if atomic.LoadInt64(&s.outstanding) > 0 {
				s.logger.Warn().
					Int64("outstanding", atomic.LoadInt64(&s.outstanding)).
					Msg("no operation has completed recently; the dependency graph may be stalled")
			}
			timer.Reset(deadlockCheckInterval)

		case <-ctx.Done():
			return nil
		}
	}
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (s *Scheduler) handleCompletion(msg completionMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.err != nil {
		s.logger.Error().Str("operation", msg.op.Name).Str("optype", msg.op.Type.Name).Err(msg.err).Msg("operation failed")
		s.recordError(msg.err)
		s.aborted = true
	}

	msg.op.Finished = true
	s.finishLocked(msg.op)
}

// finishLocked marks op done against the barrier and propagates
// readiness, or — once the scheduler has aborted — cancellation, to
// its dependents. Must be called with s.mu held.
func (s *Scheduler) finishLocked(op *operation.Operation) {
	s.wg.Done()
	atomic.AddInt64(&s.outstanding, -1)

	for _, dep := range op.Blocking {
		dep.WaitingOn--
		if dep.WaitingOn > 0 || dep.Queued {
			continue
		}
		dep.Queued = true
		if s.aborted {
			dep.Finished = true
			s.finishLocked(dep)
			continue
		}
		s.queue.Put(dep)
	}
}

// Lookup returns the operation registered under name, if any. Tests
// use it to inspect final state.
func (s *Scheduler) Lookup(name string) (*operation.Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[name]
	return op, ok
}
