package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/japaniel/kaikki/pkg/db"
)

func setupBenchmarkDB(b *testing.B) *sql.DB {
	// In-memory DB isolates ingestion overhead from disk I/O.
	ctx := context.Background()
	conn, err := db.Open(ctx, db.SQLite, ":memory:")
	if err != nil {
		b.Fatalf("failed to open db: %v", err)
	}
	_, _ = conn.Exec("PRAGMA synchronous = OFF")
	_, _ = conn.Exec("PRAGMA journal_mode = MEMORY")

	if err := db.InitDB(ctx, conn, db.SQLite); err != nil {
		b.Fatalf("failed to init db: %v", err)
	}
	return conn
}

func generateBenchmarkFeed(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `{"word":"w%d","pos":"noun","lang":"English","lang_code":"en",`+
			`"head_templates":[{"name":"en-noun","expansion":"w%d (plural w%ds)"}],`+
			`"forms":[{"form":"w%ds","tags":["plural"]}],`+
			`"sounds":[{"ipa":"/w/","tags":["US"]}],`+
			`"etymology_templates":[{"name":"inh","args":{"1":"en","2":"enm","3":"w"}}],`+
			`"senses":[{"id":"en-w%d-1","glosses":["a","b"],"links":[["a","a#English"]],`+
			`"categories":[{"name":"Nouns","parents":["Lemmas"]}],`+
			`"translations":[{"lang":"French","code":"fr","word":"m"}]}]}`+"\n", i, i, i, i, i)
	}
	return sb.String()
}

func BenchmarkIngest(b *testing.B) {
	feed := generateBenchmarkFeed(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := setupBenchmarkDB(b)
		ingester := NewIngester(conn, db.NewStore(db.SQLite))
		b.StartTimer()

		_, err := ingester.IngestReader(context.Background(), "bench", strings.NewReader(feed))
		b.StopTimer()
		conn.Close()
		if err != nil {
			b.Fatalf("Ingest failed: %v", err)
		}
	}
}

func BenchmarkIngestBatchSize(b *testing.B) {
	// Batch size only changes flush cadence; records still commit one by one.
	feed := generateBenchmarkFeed(1000)

	for _, size := range []int{1, 10, 100, 1000} {
		b.Run(fmt.Sprintf("Batch_%d", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				conn := setupBenchmarkDB(b)
				ingester := NewIngester(conn, db.NewStore(db.SQLite))
				ingester.BatchSize = size
				b.StartTimer()

				_, err := ingester.IngestReader(context.Background(), "bench", strings.NewReader(feed))
				b.StopTimer()
				conn.Close()
				if err != nil {
					b.Fatalf("Ingest failed: %v", err)
				}
			}
		})
	}
}
