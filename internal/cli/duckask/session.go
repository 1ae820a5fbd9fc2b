package duckask

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/duckmesh/duckask/internal/format"
	"github.com/duckmesh/duckask/internal/llm"
	"github.com/duckmesh/duckask/internal/observability"
	"github.com/duckmesh/duckask/internal/prompt"
	"github.com/duckmesh/duckask/internal/query"
	"github.com/duckmesh/duckask/internal/query/duckdb"
)

const questionPrompt = "\nAsk a question (or 'quit' to exit): "

type OutcomeKind string

const (
	OutcomeAnswered        OutcomeKind = "answered"
	OutcomeModelError      OutcomeKind = "model_error"
	OutcomeInvalidResponse OutcomeKind = "invalid_response"
	OutcomeQueryFailed     OutcomeKind = "query_failed"
	OutcomeFailed          OutcomeKind = "failed"
)

// Outcome is the result of one question. Every failure inside a turn ends up
// here instead of being returned, so the loop always continues.
type Outcome struct {
	Kind     OutcomeKind
	Question string
	// SQL is the statement as the model wrote it. It is only set once the
	// model produced one.
	SQL string
	// Result is valid when Executed is true, including for a turn that
	// failed afterwards while summarizing.
	Result   query.Result
	Executed bool
	Summary  string
	Message  string
	Err      error
}

type SessionConfig struct {
	Completer llm.Completer
	Engine    query.Engine
	Template  prompt.Template
	Out       io.Writer
	Logger    *slog.Logger
}

type Session struct {
	completer llm.Completer
	engine    query.Engine
	template  prompt.Template
	out       io.Writer
	logger    *slog.Logger
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		completer: cfg.Completer,
		engine:    cfg.Engine,
		template:  cfg.Template,
		out:       out,
		logger:    logger,
	}, nil
}

type modelReply struct {
	SQL   string
	Error string
}

func (s *Session) Ask(ctx context.Context, question string) Outcome {
	ctx = observability.ContextWithTurnID(ctx)
	start := time.Now()
	outcome := s.ask(ctx, question)

	attrs := []any{
		slog.String("turn_id", observability.TurnIDFromContext(ctx)),
		slog.String("outcome", string(outcome.Kind)),
		slog.Duration("duration", time.Since(start)),
	}
	if outcome.Executed {
		attrs = append(attrs,
			slog.Int("rows", len(outcome.Result.Rows)),
			slog.Any("column_types", outcome.Result.ColumnTypes),
			slog.Duration("query_duration", outcome.Result.Duration),
		)
	}
	if outcome.Err != nil {
		attrs = append(attrs, slog.String("error", observability.Mask(outcome.Err.Error())))
	}
	if outcome.Kind == OutcomeAnswered {
		s.logger.InfoContext(ctx, "turn completed", attrs...)
	} else {
		s.logger.WarnContext(ctx, "turn failed", attrs...)
	}
	observability.ObserveTurn(string(outcome.Kind))
	return outcome
}

func (s *Session) ask(ctx context.Context, question string) Outcome {
	outcome := Outcome{Question: question}

	raw, err := s.completer.Complete(ctx, s.template.Render(question), llm.FormatJSON)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = fmt.Errorf("generate sql: %w", err)
		return outcome
	}

	reply, err := parseReply(raw)
	if err != nil {
		outcome.Kind = OutcomeInvalidResponse
		outcome.Message = "Could not parse the AI response as JSON"
		outcome.Err = err
		return outcome
	}
	if reply.SQL == "" {
		outcome.Kind = OutcomeModelError
		outcome.Message = reply.Error
		return outcome
	}

	outcome.SQL = reply.SQL
	result, err := s.engine.Execute(ctx, reply.SQL)
	if err != nil {
		outcome.Kind = OutcomeQueryFailed
		outcome.Err = err
		return outcome
	}
	outcome.Result = result
	outcome.Executed = true

	table, err := format.Plain(result)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = fmt.Errorf("render result: %w", err)
		return outcome
	}
	summary, err := s.completer.Complete(ctx, prompt.Summary(question, table), llm.FormatText)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = fmt.Errorf("summarize result: %w", err)
		return outcome
	}
	outcome.Kind = OutcomeAnswered
	outcome.Summary = strings.TrimSpace(summary)
	return outcome
}

// parseReply accepts {"sql": "..."} or {"error": "..."}. A reply carrying
// both is treated as SQL.
func parseReply(raw string) (modelReply, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &fields); err != nil {
		return modelReply{}, fmt.Errorf("decode model response: %w", err)
	}
	if value, ok := fields["sql"]; ok {
		sqlText, isString := value.(string)
		if !isString || strings.TrimSpace(sqlText) == "" {
			return modelReply{}, fmt.Errorf("model response has an empty or non-string sql field")
		}
		return modelReply{SQL: sqlText}, nil
	}
	if value, ok := fields["error"]; ok {
		message, isString := value.(string)
		if !isString {
			message = fmt.Sprint(value)
		}
		return modelReply{Error: message}, nil
	}
	return modelReply{}, fmt.Errorf("model response has neither sql nor error")
}

func (s *Session) Render(outcome Outcome) {
	heading := pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)
	failure := pterm.NewStyle(pterm.FgRed, pterm.Bold)

	if outcome.Executed {
		fmt.Fprintln(s.out, "\n"+heading.Sprint("Generated SQL Query:"))
		fmt.Fprintln(s.out, "```sql\n"+format.SQL(outcome.SQL)+"\n```")

		fmt.Fprintln(s.out, "\n"+heading.Sprint("Query Results:"))
		table, err := format.Table(outcome.Result)
		if err != nil {
			table = fmt.Sprintf("(could not render results: %v)", err)
		}
		fmt.Fprintln(s.out, strings.TrimRight(table, "\n"))
	}

	switch outcome.Kind {
	case OutcomeAnswered:
		fmt.Fprintln(s.out, "\n"+heading.Sprint("Summarization:"))
		fmt.Fprintln(s.out, outcome.Summary)
	case OutcomeModelError:
		fmt.Fprintln(s.out, failure.Sprint("ERROR: Could not generate valid SQL for this question"))
		fmt.Fprintln(s.out, outcome.Message)
	case OutcomeInvalidResponse:
		fmt.Fprintln(s.out, failure.Sprint("Error: "+outcome.Message))
	case OutcomeQueryFailed:
		s.renderQueryFailure(outcome)
	default:
		fmt.Fprintln(s.out, failure.Sprint("An error occurred: ")+observability.Mask(errorText(outcome.Err)))
	}
}

func (s *Session) renderQueryFailure(outcome Outcome) {
	failure := pterm.NewStyle(pterm.FgRed, pterm.Bold)
	fmt.Fprintln(s.out, failure.Sprint("An error occurred: ")+errorText(outcome.Err))

	var catalogErr *duckdb.CatalogError
	if !errors.As(outcome.Err, &catalogErr) {
		return
	}
	fmt.Fprintln(s.out, "\nQuery: "+catalogErr.Query)
	fmt.Fprintf(s.out, "Available tables: %s\n", strings.Join(catalogErr.TableNames(), ", "))
	for _, table := range catalogErr.Tables {
		fmt.Fprintf(s.out, "Columns in %s: %s\n", table.Name, strings.Join(table.Columns, ", "))
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

type line struct {
	text string
	err  error
}

// Run reads questions from in until "quit", end of input or ctx is done.
// Turn failures are rendered and never end the loop.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan line)
	go readLines(readCtx, in, lines)

	for {
		fmt.Fprint(s.out, questionPrompt)

		var next line
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case next = <-lines:
		}

		question := strings.TrimSpace(next.text)
		if strings.EqualFold(question, "quit") {
			return nil
		}
		if question != "" {
			s.Render(s.Ask(ctx, question))
		}

		if next.err != nil {
			if errors.Is(next.err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("read question: %w", next.err)
		}
	}
}

func readLines(ctx context.Context, in io.Reader, lines chan<- line) {
	reader := bufio.NewReader(in)
	for {
		text, err := reader.ReadString('\n')
		select {
		case lines <- line{text: text, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}
