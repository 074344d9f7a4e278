package repository

import (
	"context"
	"time"

	"github.com/DataDog/go-sqllexer"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const slowQueryThreshold = 200 * time.Millisecond

type ctxKey int

const traceQueryCtxKey ctxKey = iota

type traceQueryData struct {
	startTime time.Time
	sql       string
}

// tracer logs failed and slow queries with their SQL normalized
type tracer struct {
	normalizer *sqllexer.Normalizer
}

func newTracer() *tracer {
	return &tracer{normalizer: sqllexer.NewNormalizer()}
}

func (t *tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	sql, _, err := t.normalizer.Normalize(data.SQL)
	if err != nil {
		sql = data.SQL
	}
	return context.WithValue(ctx, traceQueryCtxKey, &traceQueryData{
		startTime: time.Now(),
		sql:       sql,
	})
}

func (t *tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	queryData, ok := ctx.Value(traceQueryCtxKey).(*traceQueryData)
	if !ok {
		return
	}
	elapsed := time.Since(queryData.startTime)

	if data.Err != nil {
		log.Debug().
			Err(data.Err).
			Str("sql", queryData.sql).
			Dur("elapsed", elapsed).
			Msg("Query failed")
		return
	}

	if elapsed > slowQueryThreshold {
		log.Warn().
			Str("sql", queryData.sql).
			Dur("elapsed", elapsed).
			Str("command_tag", data.CommandTag.String()).
			Msg("Slow query")
	}
}
