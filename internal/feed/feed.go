// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package feed reads friend records from a spreadsheet published as CSV.
package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/http"
	"github.com/wneessen/friendsmap/internal/logger"
)

const (
	DefaultTimeout = time.Second * 30
	DefaultMaxSize = 10 << 20
)

var (
	ErrNoURL        = errors.New("no feed URL configured")
	ErrNoNameColumn = errors.New("feed has no name column")
)

type column int

const (
	colID column = iota
	colName
	colOrigin
	colAddress
	colProfession
	colOffice
	colBirthday
	colPhone
	colEmail
	colStatus
	colLat
	colLng
	numColumns
)

// headerAliases maps the lower-cased header names of both sheet layouts to their column.
var headerAliases = map[string]column{
	"id":              colID,
	"name":            colName,
	"from":            colOrigin,
	"origin":          colOrigin,
	"present address": colAddress,
	"address":         colAddress,
	"city":            colAddress,
	"profession":      colProfession,
	"office address":  colOffice,
	"office":          colOffice,
	"office location": colOffice,
	"dob":             colBirthday,
	"birth date":      colBirthday,
	"birthday":        colBirthday,
	"mobile":          colPhone,
	"phone":           colPhone,
	"phone number":    colPhone,
	"email":           colEmail,
	"status":          colStatus,
	"lat":             colLat,
	"latitude":        colLat,
	"lng":             colLng,
	"lon":             colLng,
	"longitude":       colLng,
}

// Fetcher downloads and parses the spreadsheet feed.
type Fetcher struct {
	http    *http.Client
	logger  *logger.Logger
	url     string
	maxSize int64
	timeout time.Duration
}

func New(client *http.Client, log *logger.Logger, url string, maxSize int64, timeout time.Duration) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{http: client, logger: log, url: url, maxSize: maxSize, timeout: timeout}
}

// Fetch retrieves the feed and returns its rows as raw records.
func (f *Fetcher) Fetch(ctx context.Context) ([]contact.RawRecord, error) {
	if f.url == "" {
		return nil, ErrNoURL
	}
	body, err := f.http.Stream(ctx, f.url, f.maxSize, f.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() {
		if err := body.Close(); err != nil {
			f.logger.Error("failed to close feed body", logger.Err(err))
		}
	}()

	return Parse(body, f.logger)
}

// Parse reads CSV data with a header row. Unknown columns are ignored, short rows leave the
// missing fields empty and rows that fail to parse are logged and skipped.
func Parse(r io.Reader, log *logger.Logger) ([]contact.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed header: %w", err)
	}
	index := mapHeader(header)
	if index[colName] < 0 {
		return nil, ErrNoNameColumn
	}

	records := make([]contact.RawRecord, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Warn("skipping malformed feed row", slog.Int("line", parseErr.Line), logger.Err(err))
			continue
		}
		if err != nil {
			return records, fmt.Errorf("failed to read feed: %w", err)
		}
		if blank(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		records = append(records, toRecord(row, index, line))
	}

	return records, nil
}

func mapHeader(header []string) [numColumns]int {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if col, ok := headerAliases[name]; ok && index[col] < 0 {
			index[col] = i
		}
	}
	return index
}

func toRecord(row []string, index [numColumns]int, line int) contact.RawRecord {
	field := func(col column) string {
		i := index[col]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return contact.RawRecord{
		Line:       line,
		ID:         field(colID),
		Name:       field(colName),
		Origin:     field(colOrigin),
		Address:    field(colAddress),
		Profession: field(colProfession),
		Office:     field(colOffice),
		Birthday:   field(colBirthday),
		Phone:      field(colPhone),
		Email:      field(colEmail),
		Status:     field(colStatus),
		Lat:        field(colLat),
		Lng:        field(colLng),
	}
}

func blank(row []string) bool {
	for _, val := range row {
		if strings.TrimSpace(val) != "" {
			return false
		}
	}
	return true
}
