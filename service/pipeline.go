package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taxbasehub/fiscal-audit/classifier"
	"github.com/taxbasehub/fiscal-audit/dto"
)

// Extractor produces text and a best-guess CNPJ for one file.
type Extractor interface {
	ProcessFile(ctx context.Context, fileID, fileName string) dto.ExtractionResult
}

// Registry resolves entities from document text.
type Registry interface {
	LoadData(ctx context.Context) error
	SmartIdentifyCompany(text string) (*dto.EntityRecord, string)
}

// Watcher lists the candidate files of a run.
type Watcher interface {
	GetRecentFiles(ctx context.Context) ([]dto.CandidateFile, error)
}

// LedgerStore is the pipeline's write side of the audit ledger.
type LedgerStore interface {
	Insert(ctx context.Context, record *dto.LedgerRecord) error
	QueryRecentIDs(ctx context.Context, windowDays int) (map[string]bool, error)
}

// Identification methods recorded in the observation field.
const (
	identifiedByRegistry = "CNPJ/IE/IM"
)

// Period origin labels recorded in the observation field.
const (
	originFilename = "NOME ARQUIVO"
	originComputed = "CALCULADA (M-1/M-2)"
)

// AuditPipeline runs one reconciliation batch: list candidates, then
// for each file blacklist check, duplicate check, extraction,
// classification, entity resolution and ledger append, across a bounded
// worker pool. Files are independent units of work; one failing never
// touches the others.
type AuditPipeline struct {
	classifier *classifier.Classifier
	extractor  Extractor
	registry   Registry
	watcher    Watcher
	ledger     LedgerStore
	logger     *logrus.Logger

	maxWorkers          int
	duplicateWindowDays int

	// now is swappable in tests.
	now func() time.Time
}

func NewAuditPipeline(
	cls *classifier.Classifier,
	extractor Extractor,
	registry Registry,
	watcher Watcher,
	ledger LedgerStore,
	maxWorkers int,
	duplicateWindowDays int,
	logger *logrus.Logger,
) *AuditPipeline {
	return &AuditPipeline{
		classifier:          cls,
		extractor:           extractor,
		registry:            registry,
		watcher:             watcher,
		ledger:              ledger,
		logger:              logger,
		maxWorkers:          maxWorkers,
		duplicateWindowDays: duplicateWindowDays,
		now:                 time.Now,
	}
}

// Run executes one batch. Only setup failures are fatal: a pipeline
// running with no registry would silently record every file as UNKNOWN,
// so that aborts before the pool starts. Per-file failures are counted
// and logged; the file stays absent from the ledger and the next
// scheduled run retries it.
func (p *AuditPipeline) Run(ctx context.Context) (*dto.RunSummary, error) {
	if err := p.registry.LoadData(ctx); err != nil {
		return nil, fmt.Errorf("loading reference registry: %w", err)
	}

	processedIDs, err := p.ledger.QueryRecentIDs(ctx, p.duplicateWindowDays)
	if err != nil {
		// Losing duplicate protection is survivable: reprocessed files
		// produce distinct (file_id, timestamp) records.
		p.logger.WithField("error", err.Error()).
			Warn("could not load processed IDs, continuing without duplicate protection")
		processedIDs = map[string]bool{}
	}
	p.logger.WithField("known_ids", len(processedIDs)).Info("duplicate snapshot loaded")

	files, err := p.watcher.GetRecentFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing candidate files: %w", err)
	}
	p.logger.WithField("queued", len(files)).Info("starting batch")

	summary := &dto.RunSummary{Total: len(files)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.maxWorkers)

	for _, file := range files {
		wg.Add(1)
		go func(f dto.CandidateFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := p.runUnit(ctx, f, processedIDs)

			mu.Lock()
			switch outcome {
			case unitSaved:
				summary.Saved++
			case unitBlacklisted:
				summary.Blacklisted++
			case unitDuplicate:
				summary.Duplicates++
			case unitCrashed:
				summary.Crashed++
			}
			mu.Unlock()
		}(file)
	}
	wg.Wait()

	p.logger.WithFields(logrus.Fields{
		"total":       summary.Total,
		"saved":       summary.Saved,
		"blacklisted": summary.Blacklisted,
		"duplicates":  summary.Duplicates,
		"crashed":     summary.Crashed,
	}).Info("batch finished")
	return summary, nil
}

type unitOutcome int

const (
	unitSaved unitOutcome = iota
	unitBlacklisted
	unitDuplicate
	unitCrashed
)

// runUnit is the unit-of-work boundary: nothing escapes it, not even a
// panic in a collaborator.
func (p *AuditPipeline) runUnit(ctx context.Context, file dto.CandidateFile, processedIDs map[string]bool) (outcome unitOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{"file": file.FileName, "panic": fmt.Sprint(r)}).
				Error("file processing crashed")
			outcome = unitCrashed
		}
	}()

	if err := p.processFile(ctx, file, processedIDs, &outcome); err != nil {
		p.logger.WithFields(logrus.Fields{"file": file.FileName, "error": err.Error()}).
			Error("file processing failed")
		return unitCrashed
	}
	return outcome
}

func (p *AuditPipeline) processFile(ctx context.Context, file dto.CandidateFile, processedIDs map[string]bool, outcome *unitOutcome) error {
	// Blacklist first: irrelevant documents must not pay extraction cost.
	if p.classifier.IsBlacklisted(file.FileName) {
		p.logger.WithField("file", file.FileName).Info("blacklisted, skipping")
		*outcome = unitBlacklisted
		return nil
	}

	if processedIDs[file.FileID] {
		p.logger.WithField("file", file.FileName).Info("already processed, skipping")
		*outcome = unitDuplicate
		return nil
	}

	extraction := p.extractor.ProcessFile(ctx, file.FileID, file.FileName)
	if strings.Contains(extraction.Text, SentinelOCRError) {
		p.logger.WithFields(logrus.Fields{"file": file.FileName, "detail": extraction.Text}).
			Error("OCR fallback failed for file")
	}

	category := p.classifier.IdentifyCategory(file.FileName)
	period, periodSource := p.classifier.CalculatePeriod(file.FileName, category, p.now())

	// Registry resolution is authoritative over raw regex extraction:
	// it also sees state/municipal registrations the CNPJ regex cannot.
	taxID := extraction.TaxID
	companyName := dto.CompanyUnknown
	identification := dto.CategoryNotIdentified
	if entity, resolved := p.registry.SmartIdentifyCompany(extraction.Text); entity != nil {
		taxID = resolved
		companyName = entity.Name
		identification = identifiedByRegistry
	}
	if taxID == "" {
		taxID = dto.TaxIDNotDetected
	}

	origin := originComputed
	if periodSource == dto.PeriodFromFilename {
		origin = originFilename
	}

	method := dto.MethodText
	if extraction.UsedOCR {
		method = dto.MethodOCR
	}

	record := &dto.LedgerRecord{
		ProcessingTimestamp: p.now().UTC(),
		FileID:              file.FileID,
		FileName:            file.FileName,
		Link:                file.Link,
		TaxID:               taxID,
		Period:              period,
		Category:            category,
		ExtractionMethod:    method,
		Observation:         fmt.Sprintf("%s | Empresa: %s (%s)", origin, companyName, identification),
		Page:                "1",
	}

	if err := p.ledger.Insert(ctx, record); err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"file":     file.FileName,
		"category": category,
		"period":   period,
		"tax_id":   taxID,
		"company":  companyName,
		"method":   method,
	}).Info("file reconciled")
	*outcome = unitSaved
	return nil
}
