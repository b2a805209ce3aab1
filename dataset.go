package ftsload

import "fmt"

const (
	// FirstYear is the first year the FTS publishes a dataset for.
	FirstYear = 2007

	defaultBaseURL = "https://ec.europa.eu/budget/financial-transparency-system/download"
)

// DatasetReference identifies one yearly FTS dataset.
type DatasetReference struct {
	Year int
	URL  string
}

// Years enumerates dataset references from start to end, inclusive and
// ascending, against the public FTS download endpoint.
func Years(start, end int) []DatasetReference {
	return yearsWithBase(defaultBaseURL, start, end)
}

func yearsWithBase(base string, start, end int) []DatasetReference {
	if end < start {
		return nil
	}

	refs := make([]DatasetReference, 0, end-start+1)
	for y := start; y <= end; y++ {
		refs = append(refs, DatasetReference{
			Year: y,
			URL:  fmt.Sprintf("%s/%d_FTS_dataset_en.xlsx", base, y),
		})
	}

	return refs
}
