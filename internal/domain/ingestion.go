package domain

// Plan is the concrete work selected by the command line.
type Plan struct {
	Categories   []Category
	Years        []int
	SkipDownload bool // suppress fetch, convert, and ignore-file maintenance
	DownloadOnly bool // suppress the load stage
}

// FetchReport describes the outcome of a fetch stage for one category.
// Converted and Skipped hold Parquet file paths.
type FetchReport struct {
	Category  Category
	Converted []string
	Skipped   []string
	Published []string
}

// LoadResult describes a table rebuilt by the loader.
type LoadResult struct {
	Category Category
	Table    string // schema-qualified, e.g. prod.yellow_tripdata
	Files    int
	Rows     int64
}
