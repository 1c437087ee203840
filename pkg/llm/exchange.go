package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const exchangeDelimiter = "\n\n==========\n\n"

// ExchangeLog persists every prompt/response pair as its own file.
type ExchangeLog struct {
	dir string
	now func() time.Time
}

func NewExchangeLog(dir string) (*ExchangeLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create exchange log dir: %w", err)
	}
	return &ExchangeLog{dir: dir, now: time.Now}, nil
}

// Write stores system, user and response separated by a delimiter line and
// returns the file path.
func (l *ExchangeLog) Write(system, user, response string) (string, error) {
	name := fmt.Sprintf("%d_llm.txt", l.now().UnixNano())
	path := filepath.Join(l.dir, name)
	body := strings.Join([]string{system, user, response}, exchangeDelimiter)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write exchange log: %w", err)
	}
	return path, nil
}
