package data

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Version is one ledger entry: a recorded prior state of a logical file.
type Version struct {
	// Number is unique per file, starts at 1 and is never reused.
	Number uint64 `json:"number"`
	// CreatedAt has second precision once persisted.
	CreatedAt time.Time `json:"created_at"`
	// Size is the number of bytes copied into the archive.
	Size int64 `json:"size"`
	// Location is opaque and only meaningful to the archive backend that produced it.
	Location string `json:"location"`
}

// MarshalLine renders the entry as "number|created_at|size|location".
func (v *Version) MarshalLine() string {
	return fmt.Sprintf("%d|%d|%d|%s", v.Number, v.CreatedAt.Unix(), v.Size, v.Location)
}

// ParseVersionLine parses a single ledger line. The location is the remainder of
// the line and may itself contain separators.
func ParseVersionLine(line string) (*Version, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), "|", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: malformed ledger line %q", ErrInvalid, line)
	}

	number, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || number == 0 {
		return nil, fmt.Errorf("%w: invalid version number %q", ErrInvalid, parts[0])
	}
	created, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp %q", ErrInvalid, parts[1])
	}
	size, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: invalid size %q", ErrInvalid, parts[2])
	}
	if parts[3] == "" {
		return nil, fmt.Errorf("%w: empty archive location", ErrInvalid)
	}

	return &Version{
		Number:    number,
		CreatedAt: time.Unix(created, 0),
		Size:      size,
		Location:  parts[3],
	}, nil
}

// DecodeLedger reads one entry per line. Unparseable lines are skipped and
// counted so that a torn tail never hides earlier history.
func DecodeLedger(r io.Reader) ([]*Version, int, error) {
	var versions []*Version
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		v, err := ParseVersionLine(line)
		if err != nil {
			skipped++
			continue
		}
		versions = append(versions, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}

	SortVersions(versions)
	return versions, skipped, nil
}

// EncodeLedger renders versions ascending by number.
func EncodeLedger(versions []*Version) []byte {
	sorted := make([]*Version, len(versions))
	copy(sorted, versions)
	SortVersions(sorted)

	var buf bytes.Buffer
	for _, v := range sorted {
		buf.WriteString(v.MarshalLine())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// SortVersions orders ascending by number.
func SortVersions(versions []*Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Number < versions[j].Number
	})
}

// LatestNumber returns the highest number in the ledger, or 0 when empty.
func LatestNumber(versions []*Version) uint64 {
	var max uint64
	for _, v := range versions {
		if v.Number > max {
			max = v.Number
		}
	}
	return max
}

// FindVersion returns the entry with the given number, or nil.
func FindVersion(versions []*Version, number uint64) *Version {
	for _, v := range versions {
		if v.Number == number {
			return v
		}
	}
	return nil
}

// AssignVersion sets v.Number to the next number when it is zero and otherwise
// checks that it is exactly one above the current maximum.
func AssignVersion(versions []*Version, v *Version) error {
	next := LatestNumber(versions) + 1
	if v.Number == 0 {
		v.Number = next
		return nil
	}
	if v.Number != next {
		return fmt.Errorf("%w: expected %d, got %d", ErrVersionConflict, next, v.Number)
	}
	return nil
}
