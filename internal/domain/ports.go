package domain

import "context"

// Converter turns a compressed CSV file into a Parquet file.
// Implemented by engine.ParquetConverter.
type Converter interface {
	Convert(ctx context.Context, srcPath, dstPath string) error
}

// Publisher copies a finished Parquet file to an external object store.
// Implemented by storage.Publisher.
type Publisher interface {
	Publish(ctx context.Context, category Category, localPath string) (string, error)
}

// Fetcher ensures local Parquet files exist for every period of a category.
// Implemented by download.Downloader.
type Fetcher interface {
	Fetch(ctx context.Context, category Category, years []int) (*FetchReport, error)
}

// TableLoader rebuilds one table per category from local Parquet files.
// Implemented by ingestion.Loader.
type TableLoader interface {
	Load(ctx context.Context, categories []Category) ([]LoadResult, error)
}
