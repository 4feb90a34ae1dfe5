// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is ISO-8601 with millisecond precision and a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the YYYYMMDD form accepted on the command line.
const DateLayout = "20060102"

// ErrNoFeatures: the catalog answer has no "features" array.
var ErrNoFeatures = errors.New("catalog response has no features")

// Parameter is the atmospheric parameter being requested.
type Parameter string

const (
	CH4 Parameter = "CH4"
	CO  Parameter = "CO"
)

var productTypes = map[Parameter]string{
	CH4: "L2__CH4___",
	CO:  "L2__CO____",
}

func ParseParameter(s string) (Parameter, error) {
	p := Parameter(s)
	if _, ok := productTypes[p]; !ok {
		return "", fmt.Errorf("invalid parameter %q: expected CH4 or CO", s)
	}
	return p, nil
}

// ProductType is the Sentinel-5P product code for p, or "" for an unknown parameter.
func (p Parameter) ProductType() string {
	return productTypes[p]
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %q. Expected YYYYMMDD", s)
	}
	return d, nil
}

type SearchParameters struct {
	StartDate      time.Time
	CompletionDate time.Time
	ProductType    string
}

// DayRange covers the whole UTC calendar day of date: [00:00:00.000, 23:59:59.999].
func DayRange(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

func NewSearchParameters(p Parameter, date time.Time) SearchParameters {
	start, end := DayRange(date)
	return SearchParameters{StartDate: start, CompletionDate: end, ProductType: p.ProductType()}
}

// Query renders the catalog query string parameters.
func (sp SearchParameters) Query() map[string]string {
	return map[string]string{
		"startDate":      sp.StartDate.UTC().Format(TimestampLayout),
		"completionDate": sp.CompletionDate.UTC().Format(TimestampLayout),
		"productType":    sp.ProductType,
	}
}

type ProductRecord struct {
	ID    string `json:"id"    yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// ArchiveName replaces the last three characters of the title with ".zip"
// (e.g. "S5P_..._020000.nc" -> "S5P_..._020000.zip"), whatever the title ends with.
func (r ProductRecord) ArchiveName() string {
	if len(r.Title) < 3 {
		return ".zip"
	}
	return r.Title[:len(r.Title)-3] + ".zip"
}

// wire format of search.json
type searchResponse struct {
	Features   *[]feature `json:"features"`
	Properties struct {
		TotalResults *int   `json:"totalResults"`
		Links        []link `json:"links"`
	} `json:"properties"`
}

type feature struct {
	ID         string `json:"id"`
	Properties struct {
		Title string `json:"title"`
	} `json:"properties"`
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}
