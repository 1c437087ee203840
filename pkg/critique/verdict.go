package critique

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/webqa/pkg/oracle"
)

const (
	acceptMarker = "[YES]"
	rejectMarker = "[NO]"
)

// Verdict is the critic's judgement of a draft. Flagged holds 0-based indices
// of the chunk answers that need rework.
type Verdict struct {
	Accept  bool
	Flagged []int
	Advice  string
}

// ParseVerdict reads "[YES]" or "[NO] [i, j, ...] advice" where indices are
// 1-based. Anything else is a format error.
func ParseVerdict(reply string) (Verdict, error) {
	reply = strings.TrimSpace(reply)
	upper := strings.ToUpper(reply)

	if strings.HasPrefix(upper, acceptMarker) {
		return Verdict{Accept: true}, nil
	}
	if !strings.HasPrefix(upper, rejectMarker) {
		return Verdict{}, &oracle.FormatError{Reply: reply}
	}

	rest := reply[len(rejectMarker):]
	open := strings.Index(rest, "[")
	if open < 0 {
		return Verdict{}, &oracle.FormatError{Reply: reply}
	}
	closing := strings.Index(rest[open:], "]")
	if closing < 0 {
		return Verdict{}, &oracle.FormatError{Reply: reply}
	}
	closing += open

	var flagged []int
	for _, field := range strings.Split(rest[open+1:closing], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 {
			return Verdict{}, &oracle.FormatError{Reply: reply}
		}
		flagged = append(flagged, n-1)
	}

	return Verdict{
		Flagged: flagged,
		Advice:  strings.TrimSpace(rest[closing+1:]),
	}, nil
}

// Check rejects indices that do not address one of n chunk answers.
func (v Verdict) Check(n int) error {
	for _, i := range v.Flagged {
		if i >= n {
			return fmt.Errorf("%w: chunk %d of %d", oracle.ErrFormat, i+1, n)
		}
	}
	return nil
}
