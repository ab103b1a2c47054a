// Package reports builds the safety panel shown for high-risk results.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/trustlayer/internal/application"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

type Contact struct {
	Label       string `json:"label"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

var (
	defaultContacts = []Contact{
		{Label: "Cybercrime Reporting", Number: "112 (EU) / 911 (US)", Description: "Emergency Services"},
		{Label: "Identity Theft Hotline", Number: "1-877-438-4338 (US)", Description: "FTC Identity Recovery"},
		{Label: "Digital Violence Helpline", Number: "Online Report", Description: "Varies by region"},
	}
	localContacts = []Contact{
		{Label: "Local Emergency", Number: "911 / 112", Description: "Nearest Emergency Services"},
		{Label: "Regional Cyber Bureau", Number: "Check Local Listings", Description: "Police Cyber Division"},
	}
	Platforms = []string{"Instagram", "X (Twitter)", "Facebook", "TikTok", "LinkedIn"}
)

// Publisher stores a rendered report and returns a link to it.
type Publisher interface {
	Publish(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type Panel struct {
	ReportID  string    `json:"report_id"`
	Report    string    `json:"report"`
	Contacts  []Contact `json:"contacts"`
	Platforms []string  `json:"platforms"`
	URL       string    `json:"url,omitempty"`
}

type Service struct {
	clock     application.Clock
	publisher Publisher
	log       *zap.Logger
}

// NewService builds the panel service. publisher may be nil.
func NewService(clock application.Clock, publisher Publisher, log *zap.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{clock: clock, publisher: publisher, log: log}
}

// Applies reports whether the panel is shown for a result.
func Applies(res *analysis.Result, id chamber.ID) bool {
	if res == nil {
		return false
	}
	return res.DeepfakeRisk == analysis.LevelHigh || id == chamber.Moderation
}

// Contacts returns the help list; located devices get local entries first.
func Contacts(located bool) []Contact {
	out := make([]Contact, 0, len(localContacts)+len(defaultContacts))
	if located {
		out = append(out, localContacts...)
	}
	return append(out, defaultContacts...)
}

// Build renders the panel. A publish failure is logged and the panel is
// returned without a URL.
func (s *Service) Build(ctx context.Context, res *analysis.Result, id chamber.ID, located bool) (*Panel, error) {
	if !Applies(res, id) {
		return nil, analysis.NewValidationError("No safety report is available for this result.")
	}
	now := s.clock.Now().UTC()
	reportID := newReportID(now)
	p := &Panel{
		ReportID:  reportID,
		Report:    Render(reportID, now, res),
		Contacts:  Contacts(located),
		Platforms: append([]string(nil), Platforms...),
	}
	if s.publisher != nil {
		key := fmt.Sprintf("reports/%s/%s.txt", now.Format("2006-01-02"), reportID)
		url, err := s.publisher.Publish(ctx, key, "text/plain; charset=utf-8", []byte(p.Report))
		if err != nil {
			s.log.Warn("report publish failed", zap.String("report_id", reportID), zap.Error(err))
		} else {
			p.URL = url
		}
	}
	return p, nil
}

func newReportID(now time.Time) string {
	head := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%05d", head, now.UnixMilli()%100000)
}

// Render produces the plain-text takedown report.
func Render(reportID string, at time.Time, res *analysis.Result) string {
	artifacts := strings.Join(res.ArtifactsDetected, ", ")
	if artifacts == "" {
		artifacts = "General synthetic patterns"
	}
	var b strings.Builder
	b.WriteString("TRUSTLAYER VERIFICATION REPORT\n")
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "REPORT ID: %s\n", reportID)
	fmt.Fprintf(&b, "DATE: %s\n\n", at.UTC().Format(time.RFC3339))
	b.WriteString("ANALYSIS SUMMARY:\n")
	fmt.Fprintf(&b, "- AI Probability: %d%%\n", res.AIGeneratedProbability)
	b.WriteString("- Classification: HIGH RISK / SYNTHETIC\n")
	fmt.Fprintf(&b, "- Detected Artifacts: %s\n\n", artifacts)
	b.WriteString("ASSESSMENT:\n")
	b.WriteString("The analyzed media exhibits structural and statistical anomalies consistent with AI generation.\n\n")
	b.WriteString("RECOMMENDATION:\n")
	b.WriteString("Review for policy violation regarding synthetic media, impersonation, and misinformation.\n\n")
	b.WriteString("PRIVACY NOTE:\n")
	b.WriteString("TrustLayer does not store user uploads. This report relies on real-time session analysis.\n")
	b.WriteString("--------------------------------")
	return b.String()
}
