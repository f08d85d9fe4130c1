package scheduler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/lento/daffy/parser"
)

// ErrSomeInstructionsFailed is returned by RunInstruction/RunProgram
// when every line was read, but one or more lines failed to parse or
// submit. Execution-time failures are reported as their
// own, more specific error instead (see Wait).
var ErrSomeInstructionsFailed = errors.New("scheduler: one or more instructions failed to parse or submit")

// RunInstruction parses and submits a single instruction line, then
// waits for the whole graph built so far to drain. It is what the
// CLI's "-c" single-instruction mode uses.
func (s *Scheduler) RunInstruction(ctx context.Context, line string) error {
	s.Start(ctx)
	defer s.Close()

	hadError := s.submitLine(line)
	return s.finishRun(hadError)
}

// RunProgram submits every non-blank, non-comment line read from r, in
// order, then waits for the whole graph to drain. A line beginning
// with "#", once leading whitespace is trimmed, is a comment and is
// skipped. A line that fails to parse or submit is logged and
// skipped; later lines are still attempted.
func (s *Scheduler) RunProgram(ctx context.Context, r io.Reader) error {
	s.Start(ctx)
	defer s.Close()

	hadError := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if s.submitLine(line) {
			hadError = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return s.finishRun(hadError)
}

// finishRun waits for the graph built so far to drain and reconciles
// an execution-time error (from Wait) with any parse/submit failures
// already seen.
func (s *Scheduler) finishRun(hadError bool) error {
	if err := s.Wait(); err != nil {
		return err
	}
	if hadError {
		return ErrSomeInstructionsFailed
	}
	return nil
}

// submitLine parses and submits one line, logging and reporting
// (without returning) any parse or submission failure, so the caller
// can keep going. It reports whether the line failed.
func (s *Scheduler) submitLine(line string) (failed bool) {
	optypeName, name, args, err := parser.ParseLine(line)
	if err != nil {
		s.logger.Error().Str("instruction", line).Err(err).Msg("syntax error")
		return true
	}
	if err := s.Submit(optypeName, name, args); err != nil {
		s.logger.Error().Str("instruction", line).Str("name", name).Err(err).Msg("submission failed")
		return true
	}
	return false
}
