package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/dashboard"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
)

const dashboardContentType = "text/html; charset=utf-8"

// DashboardOptions configures a DashboardStage.
type DashboardOptions struct {
	Statements StatementRepository
	Renderer   DashboardRenderer
	Storage    gcs.StorageService
	Bucket     string
	Prefix     string
	URLExpiry  time.Duration
	ListLimit  int
}

// DashboardStage renders a statement's dashboard, stores it next to the
// statements and hands back a signed link.
type DashboardStage struct {
	statements StatementRepository
	renderer   DashboardRenderer
	storage    gcs.StorageService
	bucket     string
	prefix     string
	urlExpiry  time.Duration
	listLimit  int
}

func NewDashboardStage(opts DashboardOptions) *DashboardStage {
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = time.Hour
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 20
	}
	return &DashboardStage{
		statements: opts.Statements,
		renderer:   opts.Renderer,
		storage:    opts.Storage,
		bucket:     opts.Bucket,
		prefix:     opts.Prefix,
		urlExpiry:  opts.URLExpiry,
		listLimit:  opts.ListLimit,
	}
}

type dashboardCreated struct {
	Message      string `json:"message"`
	DashboardURL string `json:"dashboard_url"`
	DashboardKey string `json:"dashboard_key"`
	UserID       string `json:"user_id"`
	StatementID  string `json:"statement_id"`
}

func errorResponse(status int, msg string) StageResponse {
	return jsonResponse(status, map[string]string{"error": msg})
}

// Handle accepts {"trigger_source":"bank_extract","statement_id":...}.
func (s *DashboardStage) Handle(ctx context.Context, payload []byte) StageResponse {
	var ev jobs.RenderDashboardJob
	if err := json.Unmarshal(payload, &ev); err != nil || ev.TriggerSource != jobs.TriggerSourceBankExtract {
		return errorResponse(http.StatusBadRequest, "Unsupported event format")
	}
	if strings.TrimSpace(ev.StatementID) == "" {
		return errorResponse(http.StatusBadRequest, "Missing statement_id")
	}
	return s.render(ctx, ev.StatementID)
}

func (s *DashboardStage) render(ctx context.Context, rawID string) StageResponse {
	log := logger.FromContext(ctx).With().Str("statement_id", rawID).Logger()
	ctx = logger.WithContext(ctx, log)

	id, err := uuid.Parse(rawID)
	if err != nil {
		return errorResponse(http.StatusNotFound, "Statement not found")
	}

	st, err := s.statements.Get(ctx, id)
	if errors.Is(err, domain.ErrStatementNotFound) {
		return errorResponse(http.StatusNotFound, "Statement not found")
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load statement")
		return errorResponse(http.StatusInternalServerError, err.Error())
	}

	page := s.renderer.RenderStatement(ctx, st)
	key := dashboard.BuildKey(s.prefix, st.OwnerID, st.StorageKey)
	metadata := map[string]string{gcs.OwnerMetadataKey: st.OwnerID}
	if err := s.storage.Upload(ctx, s.bucket, key, []byte(page), dashboardContentType, metadata); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload dashboard")
		return errorResponse(http.StatusInternalServerError, fmt.Sprintf("upload dashboard: %v", err))
	}

	url := s.link(ctx, key)
	log.Info().Str("key", key).Msg("dashboard created")

	return jsonResponse(http.StatusOK, dashboardCreated{
		Message:      "Dashboard created successfully",
		DashboardURL: url,
		DashboardKey: key,
		UserID:       st.OwnerID,
		StatementID:  st.ID.String(),
	})
}

// link signs key, falling back to the public object URL.
func (s *DashboardStage) link(ctx context.Context, key string) string {
	url, err := s.storage.SignedURL(ctx, s.bucket, key, s.urlExpiry)
	if err == nil {
		return url
	}
	log := logger.FromContext(ctx)
	log.Warn().Err(err).Str("key", key).Msg("signing failed, using public URL")
	return PublicURL(s.bucket, key)
}

// PublicURL is the unsigned https URL of an object.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// HandleJob is the jobs.JobHandler for render_dashboard jobs.
func (s *DashboardStage) HandleJob(ctx context.Context, job *jobs.Job) error {
	resp := s.Handle(ctx, job.Payload)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("render dashboard: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ListDashboards returns signed links to an owner's dashboards, newest first.
func (s *DashboardStage) ListDashboards(ctx context.Context, ownerID string) ([]string, error) {
	objects, err := s.storage.List(ctx, s.bucket, s.prefix+ownerID+"/")
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}

	pages := make([]gcs.ObjectAttrs, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".html") {
			pages = append(pages, obj)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Updated.After(pages[j].Updated)
	})
	if len(pages) > s.listLimit {
		pages = pages[:s.listLimit]
	}

	urls := make([]string, 0, len(pages))
	for _, obj := range pages {
		urls = append(urls, s.link(ctx, obj.Key))
	}
	return urls, nil
}
