package status

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/persistence"
)

// Reporter persists the status of a document transcription
type Reporter interface {
	Report(ctx context.Context, ID string, st Status, msg string, progress int) error
}

// DB upserts status records
type DB interface {
	SaveStatus(ctx context.Context, item *persistence.Status) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Service writes status records and emits status change events
type Service struct {
	db     DB
	sender MsgSender
	now    func() time.Time
}

// NewService creates status service, sender is optional
func NewService(db DB, sender MsgSender) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	return &Service{db: db, sender: sender, now: time.Now}, nil
}

// Report implements Reporter, it is an upsert keyed by ID
func (s *Service) Report(ctx context.Context, ID string, st Status, msg string, progress int) error {
	if ID == "" {
		return fmt.Errorf("no ID")
	}
	progress = clampProgress(progress)
	item := &persistence.Status{ID: ID, Status: st.String(), Content: MakeContent(st, msg, progress),
		Progress: int32(progress), Updated: s.now()}
	if err := s.db.SaveStatus(ctx, item); err != nil {
		return fmt.Errorf("can't save status: %w", err)
	}
	goapp.Log.Debug().Str("ID", ID).Str("status", item.Status).Int("progress", progress).Msg("status saved")
	if s.sender != nil {
		if err := s.sender.SendMessage(ctx, messages.NewStatusChange(ID), messages.StatusChange); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", ID).Msg("can't send status change")
		}
	}
	return nil
}

var progressRegexp = regexp.MustCompile(`\((\d{1,3})%\)\s*$`)

// MakeContent prepares record content. While processing the percentage is embedded as "<msg> (<percent>%)"
func MakeContent(st Status, msg string, progress int) string {
	if st == Processing {
		return fmt.Sprintf("%s (%d%%)", msg, clampProgress(progress))
	}
	return msg
}

// ParseProgress extracts percentage from the content made by MakeContent
func ParseProgress(content string) (int, bool) {
	m := progressRegexp.FindStringSubmatch(content)
	if len(m) != 2 {
		return 0, false
	}
	res, err := strconv.Atoi(m[1])
	if err != nil || res > 100 {
		return 0, false
	}
	return res, true
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
