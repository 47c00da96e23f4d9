package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page screenshots when a render goes wrong.
type ScreenshotDebugger struct {
	dir string
	log *zap.SugaredLogger
	now func() time.Time
}

func NewScreenshotDebugger(dir string, log *zap.SugaredLogger) *ScreenshotDebugger {
	return &ScreenshotDebugger{dir: dir, log: log, now: time.Now}
}

// Path returns the file a capture named name would be written to.
func (s *ScreenshotDebugger) Path(name string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.png", name, s.now().Format("2006-01-02_15-04-05")))
}

func (s *ScreenshotDebugger) Capture(page playwright.Page, name, message string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := s.Path(name)
	s.log.Infow(message, "screenshot", path)

	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		s.log.Warnw("Failed to capture screenshot", "error", err)
		return err
	}
	return nil
}
