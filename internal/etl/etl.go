// Package etl sequences the pipeline: batch discovery, per-file transform
// and validation, reject routing, card consolidation, and the destination
// load. Input files are independent until the card consolidation barrier,
// so per-file work runs concurrently; everything after the barrier is
// sequential by design.
package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cardpipe/internal/config"
	"cardpipe/internal/consolidate"
	"cardpipe/internal/datasource/file"
	"cardpipe/internal/metrics"
	csvparser "cardpipe/internal/parser/csv"
	"cardpipe/internal/records"
	"cardpipe/internal/rejects"
	"cardpipe/internal/storage"
	"cardpipe/internal/transformer"
	"cardpipe/internal/transformer/builtin"
)

// Runner executes one full pipeline run.
type Runner struct {
	cfg  config.Pipeline
	log  *zap.SugaredLogger
	repo storage.Repository // nil disables the load stage
}

// NewRunner wires a Runner. repo may be nil for transform-only runs.
func NewRunner(cfg config.Pipeline, log *zap.SugaredLogger, repo storage.Repository) *Runner {
	return &Runner{cfg: cfg, log: log, repo: repo}
}

// Summary aggregates the counters of a run.
type Summary struct {
	CustomerFiles     int
	CardFiles         int
	IgnoredFiles      int
	SkippedDuplicates int
	FailedFiles       int

	Processed   int
	ParseErrors int

	ValidCustomers    int
	ValidCards        int
	RejectedCustomers int
	RejectedCards     int

	ConsolidatedCards  int
	ReferentialDropped int

	LoadedCustomers int64
	LoadedCards     int64
}

// fileResult is the outcome of processing a single input file. A failed
// file is isolated: it is logged and skipped without aborting the run.
type fileResult struct {
	valid       []records.Record
	rejected    []records.Record
	parseErrors int
	skipped     bool
	failed      bool
}

// headerAliases maps legacy extract headers to canonical column names.
var headerAliases = map[string]string{
	"cod cliente": builtin.ColCustomerID,
}

// Run executes the pipeline and returns the run summary. The returned
// error is non-nil only for run-level failures (discovery, reject output,
// destination store); per-file failures are counted and logged instead.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	disc, err := file.Discover(r.cfg.Input.Dir)
	if err != nil {
		return sum, err
	}
	sum.CustomerFiles = len(disc.Customers)
	sum.CardFiles = len(disc.Cards)
	sum.IgnoredFiles = len(disc.Ignored)
	r.log.Infow("discovered batches",
		"clientes", len(disc.Customers), "tarjetas", len(disc.Cards), "ignored", len(disc.Ignored))

	var (
		seenMu sync.Mutex
		seen   = map[string]string{} // fingerprint -> first file name
	)
	isDuplicate := func(name, fp string) bool {
		seenMu.Lock()
		defer seenMu.Unlock()
		if first, ok := seen[fp]; ok {
			r.log.Warnw("skipping duplicate input", "file", name, "same_as", first)
			return true
		}
		seen[fp] = name
		return false
	}

	custResults := make([]fileResult, len(disc.Customers))
	cardResults := make([]fileResult, len(disc.Cards))

	transformStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Runtime.FileWorkers))

	for i, name := range disc.Customers {
		i, name := i, name
		g.Go(func() error {
			custResults[i] = r.processFile(gctx, name, isDuplicate, r.customerStages())
			return nil
		})
	}
	for i, name := range disc.Cards {
		i, name := i, name
		g.Go(func() error {
			cardResults[i] = r.processFile(gctx, name, isDuplicate, r.cardStages())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	metrics.RecordStep(r.cfg.Job, "transform", nil, time.Since(transformStart))

	var allRejects []records.Record
	collect := func(results []fileResult) {
		for _, res := range results {
			if res.skipped {
				sum.SkippedDuplicates++
			}
			if res.failed {
				sum.FailedFiles++
			}
			sum.ParseErrors += res.parseErrors
			sum.Processed += len(res.valid) + len(res.rejected)
			allRejects = append(allRejects, res.rejected...)
		}
	}
	collect(custResults)
	collect(cardResults)
	for _, res := range custResults {
		sum.ValidCustomers += len(res.valid)
		sum.RejectedCustomers += len(res.rejected)
	}
	for _, res := range cardResults {
		sum.ValidCards += len(res.valid)
		sum.RejectedCards += len(res.rejected)
	}

	rejStart := time.Now()
	rejCustomers, rejCards := rejects.Split(allRejects)
	err = rejects.WriteFiles(r.cfg.Output.RejectedDir, rejCustomers, rejCards)
	metrics.RecordStep(r.cfg.Job, "rejects", err, time.Since(rejStart))
	if err != nil {
		return sum, err
	}
	r.log.Infow("rejects written",
		"clientes", len(rejCustomers), "tarjetas", len(rejCards), "dir", r.cfg.Output.RejectedDir)

	// Consolidation barrier: every card batch is in memory by now.
	var allCards []records.Record
	for _, res := range cardResults {
		allCards = append(allCards, res.valid...)
	}
	consolidated := consolidate.Latest(allCards)
	sum.ConsolidatedCards = len(consolidated)
	r.log.Infow("cards consolidated", "in", len(allCards), "out", len(consolidated))

	if r.repo != nil {
		if err := r.load(ctx, &sum, custResults, consolidated); err != nil {
			return sum, err
		}
	} else {
		r.log.Infow("no destination configured, load skipped")
	}

	r.recordRows(sum)
	if err := metrics.Flush(); err != nil {
		r.log.Warnw("metrics flush failed", "err", err)
	}
	return sum, nil
}

// stages bundles the per-entity parser options, transform chain, and
// validator factory. The validator is built per file so its reject sink can
// append to that file's result.
type stages struct {
	parser   csvparser.Options
	chain    transformer.Chain
	validate func(reject func(records.Record)) transformer.Transformer
	cleaned  []string // cleaned-output column order, key first
}

func (r *Runner) customerStages() stages {
	return stages{
		parser: csvparser.Options{
			HasHeader:      true,
			TrimSpace:      true,
			HeaderMap:      headerAliases,
			Latin1Fallback: true,
		},
		chain: transformer.Chain{builtin.Normalize{}, builtin.CleanCustomer{}},
		validate: func(reject func(records.Record)) transformer.Transformer {
			return builtin.ValidateCustomers{
				StrictChecksum: r.cfg.Validation.StrictIDChecksum,
				MaskRejected:   r.cfg.Cleaning.MaskRejectedIDs,
				Reject:         reject,
			}
		},
		cleaned: []string{
			builtin.ColCustomerID,
			builtin.ColFirstName, builtin.ColLastName1, builtin.ColLastName2,
			builtin.ColNationalID, builtin.ColEmail, builtin.ColPhone,
			"dni_ok", "dni_ko", "telefono_ok", "telefono_ko", "correo_ok", "correo_ko",
		},
	}
}

func (r *Runner) cardStages() stages {
	return stages{
		parser: csvparser.Options{
			HasHeader:      true,
			TrimSpace:      true,
			HeaderMap:      headerAliases,
			Latin1Fallback: true,
		},
		chain: transformer.Chain{builtin.Normalize{}, builtin.CleanCard{Salt: r.cfg.Cleaning.CardSalt}},
		validate: func(reject func(records.Record)) transformer.Transformer {
			return builtin.ValidateCards{Reject: reject}
		},
		cleaned: []string{
			builtin.ColCustomerID, builtin.ColExpiration,
			builtin.ColCardMasked, builtin.ColCardHash,
			"cod_cliente_ok", "cod_cliente_ko", "fecha_exp_ok", "fecha_exp_ko",
			"tarjeta_ok", "tarjeta_ko",
		},
	}
}

// processFile runs one input file through parse → transform → validate and
// writes its cleaned output. Failures are contained in the result.
func (r *Runner) processFile(ctx context.Context, name string, isDuplicate func(name, fp string) bool, st stages) fileResult {
	var res fileResult
	path := filepath.Join(r.cfg.Input.Dir, name)

	fp, err := file.Fingerprint(path)
	if err != nil {
		r.log.Errorw("file skipped", "file", name, "err", err)
		res.failed = true
		return res
	}
	if isDuplicate(name, fp) {
		res.skipped = true
		return res
	}

	src := file.NewLocal(path)
	rc, err := src.Open(ctx)
	if err != nil {
		r.log.Errorw("file skipped", "file", name, "err", err)
		res.failed = true
		return res
	}
	defer rc.Close()

	recs, skipped, err := csvparser.NewParser(st.parser).Parse(rc)
	if err != nil {
		r.log.Errorw("file skipped", "file", name, "err", err)
		res.failed = true
		return res
	}
	res.parseErrors = skipped
	if skipped > 0 {
		r.log.Warnw("malformed lines dropped", "file", name, "count", skipped)
	}

	out := st.chain.Apply(recs)
	validator := st.validate(func(rej records.Record) { res.rejected = append(res.rejected, rej) })
	res.valid = validator.Apply(out)

	cleanedPath := filepath.Join(r.cfg.Output.CleanedDir, cleanedName(name))
	if err := writeTable(cleanedPath, st.cleaned, res.valid, ','); err != nil {
		r.log.Errorw("cleaned output failed", "file", name, "err", err)
		res.failed = true
		return res
	}
	r.log.Infow("file processed",
		"file", name, "fingerprint", fp,
		"valid", len(res.valid), "rejected", len(res.rejected), "parse_errors", skipped)
	return res
}

// load runs the destination sequence: schema, customer upserts in batch
// discovery order, then the consolidated card replace. Each entity writes
// in its own transaction; a failure aborts the stage without touching the
// other entity's table.
func (r *Runner) load(ctx context.Context, sum *Summary, custResults []fileResult, cards []records.Record) error {
	start := time.Now()
	err := r.repo.EnsureSchema(ctx)
	metrics.RecordStep(r.cfg.Job, "ensure_schema", err, time.Since(start))
	if err != nil {
		return err
	}

	start = time.Now()
	for _, res := range custResults {
		if res.skipped || res.failed {
			continue
		}
		n, err := r.repo.UpsertCustomers(ctx, res.valid)
		if err != nil {
			metrics.RecordStep(r.cfg.Job, "load_clientes", err, time.Since(start))
			return fmt.Errorf("upsert clientes: %w", err)
		}
		sum.LoadedCustomers += n
	}
	metrics.RecordStep(r.cfg.Job, "load_clientes", nil, time.Since(start))
	r.log.Infow("clientes loaded", "rows", sum.LoadedCustomers)

	start = time.Now()
	existing, err := r.repo.CustomerIDs(ctx)
	if err == nil {
		var dropped int
		cards, dropped = consolidate.FilterExisting(cards, existing)
		sum.ReferentialDropped = dropped
		if dropped > 0 {
			r.log.Warnw("cards dropped for missing customers", "count", dropped)
		}
		sum.LoadedCards, err = r.repo.ReplaceCards(ctx, cards)
	}
	metrics.RecordStep(r.cfg.Job, "load_tarjetas", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("replace tarjetas: %w", err)
	}
	r.log.Infow("tarjetas replaced", "rows", sum.LoadedCards)
	return nil
}

func (r *Runner) recordRows(sum Summary) {
	metrics.RecordRows(r.cfg.Job, "processed", int64(sum.Processed))
	metrics.RecordRows(r.cfg.Job, "parse_errors", int64(sum.ParseErrors))
	metrics.RecordRows(r.cfg.Job, "rejected_customers", int64(sum.RejectedCustomers))
	metrics.RecordRows(r.cfg.Job, "rejected_cards", int64(sum.RejectedCards))
	metrics.RecordRows(r.cfg.Job, "referential_dropped", int64(sum.ReferentialDropped))
	metrics.RecordRows(r.cfg.Job, "loaded_customers", sum.LoadedCustomers)
	metrics.RecordRows(r.cfg.Job, "loaded_cards", sum.LoadedCards)
}
