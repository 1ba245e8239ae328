package tempfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
)

const dirPrefix = "job-"

var unsafeRegexp = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Dirs manages per job work dirs under one root dir
type Dirs struct {
	root         string
	expiresAfter time.Duration
	now          func() time.Time
}

// NewDirs creates job dirs manager, root is created if missing
func NewDirs(root string) (*Dirs, error) {
	if root == "" {
		return nil, fmt.Errorf("no root dir")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("can't create dir '%s': %w", root, err)
	}
	return &Dirs{root: root, now: time.Now}, nil
}

// WithExpire sets age after which a job dir is reported by GetExpired
func (d *Dirs) WithExpire(expiresAfter time.Duration) *Dirs {
	d.expiresAfter = expiresAfter
	return d
}

// Create makes a new unique dir for one job run
func (d *Dirs) Create(ID string) (string, error) {
	name := fmt.Sprintf("%s%s-%s", dirPrefix, safeName(ID), uuid.NewString())
	res := filepath.Join(d.root, name)
	if err := os.Mkdir(res, 0755); err != nil {
		return "", fmt.Errorf("can't create job dir: %w", err)
	}
	return res, nil
}

// GetExpired returns names of job dirs older than the expire duration
func (d *Dirs) GetExpired(ctx context.Context) ([]string, error) {
	if d.expiresAfter <= 0 {
		return nil, fmt.Errorf("no expire duration")
	}
	exp := d.now().Add(-d.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Str("root", d.root).Msg("selecting old job dirs...")
	names, err := d.list()
	if err != nil {
		return nil, err
	}
	res := []string{}
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := os.Stat(filepath.Join(d.root, n))
		if err != nil {
			continue
		}
		if st.ModTime().Before(exp) {
			res = append(res, n)
		}
	}
	return res, nil
}

// Clean removes one job dir by its name
func (d *Dirs) Clean(ctx context.Context, name string) error {
	if !isJobDir(name) {
		return fmt.Errorf("not a job dir '%s'", name)
	}
	if err := os.RemoveAll(filepath.Join(d.root, name)); err != nil {
		return fmt.Errorf("can't remove '%s': %w", name, err)
	}
	goapp.Log.Info().Str("dir", name).Msg("deleted")
	return nil
}

// CleanAll removes every job dir under root, returns the number of removed dirs
func (d *Dirs) CleanAll(ctx context.Context) (int, error) {
	names, err := d.list()
	if err != nil {
		return 0, err
	}
	res := 0
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := d.Clean(ctx, n); err != nil {
			return res, err
		}
		res++
	}
	return res, nil
}

func (d *Dirs) list() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("can't read dir '%s': %w", d.root, err)
	}
	var res []string
	for _, e := range entries {
		if e.IsDir() && isJobDir(e.Name()) {
			res = append(res, e.Name())
		}
	}
	return res, nil
}

func isJobDir(name string) bool {
	return strings.HasPrefix(name, dirPrefix) && name == filepath.Base(name) && name != dirPrefix
}

func safeName(ID string) string {
	res := unsafeRegexp.ReplaceAllString(ID, "_")
	if len(res) > 40 {
		res = res[:40]
	}
	return res
}
