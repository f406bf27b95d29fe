package viewmodel

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportFormats lists the formats the export endpoint accepts.
var ExportFormats = []string{"csv"}

// ExportRequest asks the backend for a download of the expenses in Period.
type ExportRequest struct {
	Format string
	Period Period
}

func (r ExportRequest) Validate() error {
	if err := r.Period.Validate(); err != nil {
		return err
	}
	for _, f := range ExportFormats {
		if r.Format == f {
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnsupportedFormat, r.Format)
}

// Params carries the active period as query parameters; "all" selections are
// omitted.
func (r ExportRequest) Params() url.Values {
	v := url.Values{}
	if r.Period.Month != 0 {
		v.Set("month", strconv.Itoa(r.Period.Month))
	}
	if r.Period.Year != 0 {
		v.Set("year", strconv.Itoa(r.Period.Year))
	}
	return v
}

// Filename is expenses[_YYYY][_MM].<format>.
func (r ExportRequest) Filename() string {
	parts := []string{"expenses"}
	if r.Period.Year != 0 {
		parts = append(parts, strconv.Itoa(r.Period.Year))
	}
	if r.Period.Month != 0 {
		parts = append(parts, fmt.Sprintf("%02d", r.Period.Month))
	}
	return strings.Join(parts, "_") + "." + r.Format
}
