package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jaredboynton/postman-probe-sub001/internal/catalog"
	"github.com/jaredboynton/postman-probe-sub001/internal/governance"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/influxdb"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/logging"
	"github.com/jaredboynton/postman-probe-sub001/internal/postman"
	"github.com/jaredboynton/postman-probe-sub001/internal/snapshot"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing.
var ErrRunInProgress = errors.New("collection run already in progress")

// defaultRunTimeout bounds a run when the config specifies none.
const defaultRunTimeout = 5 * time.Minute

// hoursPerDay converts the retention setting into a prune horizon.
const hoursPerDay = 24

// Inventory is the collector's view of the Postman API. *postman.Client
// satisfies it; tests substitute a stub.
type Inventory interface {
	ListWorkspaces(ctx context.Context) ([]postman.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*postman.WorkspaceDetail, error)
	ListCollections(ctx context.Context) ([]postman.CollectionSummary, error)
	GetCollection(ctx context.Context, uid string) (*postman.CollectionDetail, error)
	ListUsers(ctx context.Context) ([]postman.User, error)
}

// Collector runs the scheduled collection job: fetch the Postman
// inventory, evaluate governance, persist results and record history.
type Collector struct {
	cfg     config.CollectionConfig
	source  Inventory
	catalog catalog.Repository
	engine  *governance.Engine
	results governance.Repository
	snaps   snapshot.Repository
	runs    RunRepository
	export  *influxdb.Client
	logger  *logging.Logger

	cron    *cron.Cron
	running atomic.Bool
}

// New creates a Collector. export may be nil when InfluxDB is disabled.
func New(
	cfg config.CollectionConfig,
	source Inventory,
	catalogRepo catalog.Repository,
	engine *governance.Engine,
	results governance.Repository,
	snaps snapshot.Repository,
	runs RunRepository,
	export *influxdb.Client,
	logger *logging.Logger,
) *Collector {
	return &Collector{
		cfg:     cfg,
		source:  source,
		catalog: catalogRepo,
		engine:  engine,
		results: results,
		snaps:   snaps,
		runs:    runs,
		export:  export,
		logger:  logger.With("component", "collector"),
	}
}

// Start registers the cron schedule and begins running it. The ctx
// bounds every scheduled run.
func (c *Collector) Start(ctx context.Context) error {
	c.cron = cron.New()

	_, err := c.cron.AddFunc(c.cfg.Schedule, func() {
		if _, err := c.Run(ctx, TriggerCron); err != nil && !errors.Is(err, ErrRunInProgress) {
			c.logger.Error("scheduled collection run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("registering schedule %q: %w", c.cfg.Schedule, err)
	}

	c.cron.Start()
	c.logger.Info("collector started", "schedule", c.cfg.Schedule)
	return nil
}

// Stop halts the scheduler and waits for any in-flight run to finish.
func (c *Collector) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.logger.Info("collector stopped")
}

// Trigger starts a manual run in the background. It returns
// ErrRunInProgress when a run is already executing.
func (c *Collector) Trigger(ctx context.Context) error {
	if c.running.Load() {
		return ErrRunInProgress
	}
	go func() {
		if _, err := c.Run(ctx, TriggerManual); err != nil && !errors.Is(err, ErrRunInProgress) {
			c.logger.Error("manual collection run failed", "error", err)
		}
	}()
	return nil
}

// Run executes one collection run end to end. Overlapping runs are
// rejected with ErrRunInProgress. A failed run is recorded in the run
// history and returned; it never kills the process.
func (c *Collector) Run(ctx context.Context, trigger string) (*Run, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer c.running.Store(false)

	timeout := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := &Run{Trigger: trigger}
	start := time.Now()

	c.logger.Info("collection run starting", "trigger", trigger)

	err := c.collect(runCtx, run)
	run.DurationMS = time.Since(start).Milliseconds()

	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		c.logger.Error("collection run failed",
			"trigger", trigger,
			"duration_ms", run.DurationMS,
			"error", err,
		)
	} else {
		run.Status = StatusCompleted
		c.logger.Info("collection run completed",
			"trigger", trigger,
			"duration_ms", run.DurationMS,
			"workspaces", run.Workspaces,
			"collections", run.Collections,
			"users", run.Users,
			"violations", run.Violations,
		)
	}

	// The history row is recorded for failures too. Use a fresh context
	// so a run timeout does not also lose the record.
	recordCtx, recordCancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd // bounded bookkeeping write
	defer recordCancel()
	if recordErr := c.runs.Record(recordCtx, run); recordErr != nil {
		c.logger.Error("recording collection run failed", "error", recordErr)
	}

	c.logger.Audit("collection_run", map[string]any{
		"run_id":     run.ID,
		"trigger":    run.Trigger,
		"status":     run.Status,
		"violations": run.Violations,
	})

	if c.export.IsConnected() {
		c.export.WriteRunDuration(run.ID, run.Status, time.Duration(run.DurationMS)*time.Millisecond)
	}

	if err != nil {
		return run, fmt.Errorf("collection run: %w", err)
	}
	return run, nil
}

// collect performs the fetch, evaluate and persist phases, filling the
// run's counters as it goes.
func (c *Collector) collect(ctx context.Context, run *Run) error {
	run.ID = "run-" + uuid.NewString()[:8]

	workspaces, collections, users, err := c.fetchInventory(ctx)
	if err != nil {
		return err
	}
	run.Workspaces = len(workspaces)
	run.Collections = len(collections)
	run.Users = len(users)

	if err := c.storeInventory(ctx, workspaces, collections, users); err != nil {
		return err
	}

	report := c.engine.Evaluate(run.ID, collections, workspaces)
	run.Violations = len(report.Violations)
	run.OverallScore = &report.Score.Overall

	if err := c.results.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("saving governance report: %w", err)
	}

	counts, err := c.catalog.Counts(ctx)
	if err != nil {
		return fmt.Errorf("counting inventory: %w", err)
	}

	snap := &snapshot.Snapshot{
		RunID:      run.ID,
		Overall:    report.Score.Overall,
		Categories: report.Score.Categories,
		Counts:     counts,
	}
	if err := c.snaps.Record(ctx, snap); err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}

	if c.cfg.SnapshotRetentionDays > 0 {
		horizon := time.Now().UTC().Add(-time.Duration(c.cfg.SnapshotRetentionDays) * hoursPerDay * time.Hour)
		removed, err := c.snaps.Prune(ctx, horizon)
		if err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		if removed > 0 {
			c.logger.Debug("pruned snapshots", "removed", removed)
		}
	}

	if c.export.IsConnected() {
		c.export.WriteScore(run.ID, report.Score.Overall, report.Score.Categories)
		c.export.WriteInventoryCounts(run.ID, counts)
	}

	return nil
}

// fetchInventory pulls the full workspace, collection and user
// inventory from the Postman API and maps it to catalog entities.
func (c *Collector) fetchInventory(ctx context.Context) ([]catalog.Workspace, []catalog.Collection, []catalog.User, error) {
	apiWorkspaces, err := c.source.ListWorkspaces(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing workspaces: %w", err)
	}

	// Workspace details give collection membership; collections do not
	// carry their workspace themselves.
	membership := make(map[string]string)
	workspaces := make([]catalog.Workspace, 0, len(apiWorkspaces))
	for _, ws := range apiWorkspaces {
		detail, err := c.source.GetWorkspace(ctx, ws.ID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fetching workspace %s: %w", ws.ID, err)
		}
		for _, ref := range detail.Collections {
			membership[ref.ID] = ws.ID
			if ref.UID != "" {
				membership[ref.UID] = ws.ID
			}
		}
		workspaces = append(workspaces, catalog.Workspace{
			ID:          ws.ID,
			Name:        ws.Name,
			Type:        ws.Type,
			Description: detail.Description,
		})
	}

	summaries, err := c.source.ListCollections(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing collections: %w", err)
	}

	collections := make([]catalog.Collection, 0, len(summaries))
	for _, summary := range summaries {
		detail, err := c.source.GetCollection(ctx, summary.UID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fetching collection %s: %w", summary.UID, err)
		}

		workspaceID := membership[summary.ID]
		if workspaceID == "" {
			workspaceID = membership[summary.UID]
		}

		col := catalog.Collection{
			ID:          summary.ID,
			WorkspaceID: workspaceID,
			Name:        summary.Name,
			Description: detail.Info.Description,
			Tags:        detail.Info.Tags,
			ForkCount:   summary.ForkCount,
		}
		if detail.Info.Name != "" {
			col.Name = detail.Info.Name
		}
		if t, err := time.Parse(time.RFC3339, summary.UpdatedAt); err == nil {
			col.UpdatedAt = t
		}
		collections = append(collections, col)
	}

	apiUsers, err := c.source.ListUsers(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]catalog.User, 0, len(apiUsers))
	for _, u := range apiUsers {
		users = append(users, catalog.User{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role,
		})
	}

	return workspaces, collections, users, nil
}

// storeInventory upserts the fetched inventory into the catalog.
func (c *Collector) storeInventory(ctx context.Context, workspaces []catalog.Workspace, collections []catalog.Collection, users []catalog.User) error {
	for i := range workspaces {
		if err := c.catalog.UpsertWorkspace(ctx, &workspaces[i]); err != nil {
			return fmt.Errorf("storing workspace %s: %w", workspaces[i].ID, err)
		}
	}
	for i := range collections {
		if err := c.catalog.UpsertCollection(ctx, &collections[i]); err != nil {
			return fmt.Errorf("storing collection %s: %w", collections[i].ID, err)
		}
	}
	for i := range users {
		if err := c.catalog.UpsertUser(ctx, &users[i]); err != nil {
			return fmt.Errorf("storing user %s: %w", users[i].ID, err)
		}
	}
	return nil
}
