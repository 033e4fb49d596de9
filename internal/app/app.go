// Package app wires schema inference, translation, validation and execution
// into the question pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/askmongo/askmongo/internal/ingest"
	"github.com/askmongo/askmongo/internal/query"
	"github.com/askmongo/askmongo/internal/schema"
	"github.com/askmongo/askmongo/internal/translate"
)

// Store is the document-store surface the pipeline needs. *store.Store
// satisfies it; tests substitute fakes.
type Store interface {
	SampleDocuments(ctx context.Context, limit int) ([]map[string]any, error)
	InsertDocuments(ctx context.Context, docs []map[string]any) (int, error)
	Execute(ctx context.Context, q query.StructuredQuery, fields schema.FieldSchema, limit int) ([]map[string]any, error)
}

type Options struct {
	ResultLimit int
	SampleSize  int

	// TranslateTimeout bounds one translator call.
	TranslateTimeout time.Duration
	// TranslateRetryWait is the pause before the single transient retry.
	TranslateRetryWait time.Duration
	// QueryTimeout bounds one store operation.
	QueryTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ResultLimit <= 0 {
		o.ResultLimit = 100
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 100
	}
	if o.TranslateTimeout <= 0 {
		o.TranslateTimeout = 30 * time.Second
	}
	if o.TranslateRetryWait < 0 {
		o.TranslateRetryWait = 0
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 15 * time.Second
	}
	return o
}

// App holds the long-lived pieces of the pipeline. The field schema is the
// only shared state; it is rebuilt on every dataset load and read-only in
// between.
type App struct {
	store      Store
	translator translate.Translator
	opts       Options
	log        *log.Logger

	mu     sync.RWMutex
	fields schema.FieldSchema
}

func New(store Store, translator translate.Translator, opts Options, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &App{
		store:      store,
		translator: translator,
		opts:       opts.withDefaults(),
		log:        logger,
	}
}

// Answer is the outcome of one question: the query the model produced (for
// display) and the bounded result set.
type Answer struct {
	Question string
	Query    query.StructuredQuery
	Docs     []map[string]any
	Elapsed  time.Duration
}

// RefreshSchema samples the collection and rebuilds the field schema.
func (a *App) RefreshSchema(ctx context.Context) (schema.FieldSchema, error) {
	sampleCtx, cancel := context.WithTimeout(ctx, a.opts.QueryTimeout)
	defer cancel()

	samples, err := a.store.SampleDocuments(sampleCtx, a.opts.SampleSize)
	if err != nil {
		return nil, err
	}
	fields := schema.Infer(samples)

	a.mu.Lock()
	a.fields = fields
	a.mu.Unlock()

	a.log.Printf("schema refreshed: %d fields from %d sampled documents", len(fields), len(samples))
	return fields, nil
}

// Fields returns a copy of the current schema.
func (a *App) Fields() schema.FieldSchema {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(schema.FieldSchema, len(a.fields))
	for k, v := range a.fields {
		out[k] = v
	}
	return out
}

// Ask runs the full pipeline for one question: translate, validate, execute.
//
// The translator is untrusted; its output only reaches the store after
// query.Validate accepts it. Transient translation failures are retried
// exactly once. Store execution is a single attempt.
func (a *App) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()

	fields := a.Fields()
	if len(fields) == 0 {
		return nil, fmt.Errorf("no dataset loaded: collection is empty or schema not refreshed")
	}

	q, err := a.translateOnceRetried(ctx, question, fields)
	if err != nil {
		return nil, err
	}

	validated, err := query.Validate(q, fields)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, a.opts.QueryTimeout)
	defer cancel()
	docs, err := a.store.Execute(execCtx, validated, fields, a.opts.ResultLimit)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	a.log.Printf("question answered: rows=%d elapsed=%s", len(docs), elapsed.Round(time.Millisecond))
	return &Answer{
		Question: question,
		Query:    validated,
		Docs:     docs,
		Elapsed:  elapsed,
	}, nil
}

// AskDocs adapts Ask for batch runs that only need the documents.
func (a *App) AskDocs(ctx context.Context, question string) ([]map[string]any, error) {
	ans, err := a.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	return ans.Docs, nil
}

// LoadCSV ingests a CSV stream into the collection and refreshes the schema.
// Returns the number of inserted documents.
func (a *App) LoadCSV(ctx context.Context, r io.Reader) (int, error) {
	docs, err := ingest.ReadDocumentsCSV(r)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("CSV contains no data rows")
	}

	insertCtx, cancel := context.WithTimeout(ctx, a.opts.QueryTimeout)
	defer cancel()
	n, err := a.store.InsertDocuments(insertCtx, docs)
	if err != nil {
		return 0, err
	}
	a.log.Printf("csv ingested: %d documents", n)

	if _, err := a.RefreshSchema(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func (a *App) translateOnceRetried(ctx context.Context, question string, fields schema.FieldSchema) (query.StructuredQuery, error) {
	q, err := a.translateOnce(ctx, question, fields)
	if err == nil {
		return q, nil
	}

	var te *translate.TransientError
	if !errors.As(err, &te) {
		return query.StructuredQuery{}, err
	}
	a.log.Printf("transient translation failure, retrying once: %v", err)

	if a.opts.TranslateRetryWait > 0 {
		t := time.NewTimer(a.opts.TranslateRetryWait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return query.StructuredQuery{}, ctx.Err()
		}
	}

	q, err = a.translateOnce(ctx, question, fields)
	if err == nil {
		return q, nil
	}
	if errors.As(err, &te) {
		// Out of retries; surface as a translation failure.
		return query.StructuredQuery{}, &translate.TranslationError{Cause: err}
	}
	return query.StructuredQuery{}, err
}

func (a *App) translateOnce(ctx context.Context, question string, fields schema.FieldSchema) (query.StructuredQuery, error) {
	tctx, cancel := context.WithTimeout(ctx, a.opts.TranslateTimeout)
	defer cancel()
	return a.translator.Translate(tctx, question, fields)
}
