package docindex

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/irtaza129/datashare/errors"
	"github.com/irtaza129/datashare/tasks"
	"github.com/irtaza129/datashare/worker"
)

// Task names the bodies below register under.
const (
	TaskScan   = "scan"
	TaskIndex  = "index"
	TaskSearch = "search"
)

// Register binds the document task bodies to a factory: "scan" walks a
// directory and indexes file contents, "index" indexes inline documents,
// "search" runs a query against the index.
func Register(f *worker.Factory, idx *Index) {
	f.Register(TaskScan, scanBuilder(idx))
	f.Register(TaskIndex, indexBuilder(idx))
	f.Register(TaskSearch, searchBuilder(idx))
}

func scanBuilder(idx *Index) worker.Builder {
	return func(task *tasks.Task) (worker.Work, error) {
		dataDir, ok := stringProp(task, "dataDir")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "dataDir property required",
				errors.WithTaskID(task.ID))
		}
		return func(ctx context.Context, progress func(float64)) (interface{}, error) {
			var paths []string
			err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !d.IsDir() {
					paths = append(paths, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}

			for n, path := range paths {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				content, err := os.ReadFile(path)
				if err != nil {
					return nil, err
				}
				doc := Document{ID: path, Path: path, Content: string(content)}
				if err := idx.Add(doc); err != nil {
					return nil, err
				}
				progress(float64(n+1) / float64(len(paths)))
			}
			return map[string]interface{}{"count": float64(len(paths))}, nil
		}, nil
	}
}

func indexBuilder(idx *Index) worker.Builder {
	return func(task *tasks.Task) (worker.Work, error) {
		raw, ok := task.Properties["documents"].([]interface{})
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "documents property required",
				errors.WithTaskID(task.ID))
		}
		return func(ctx context.Context, progress func(float64)) (interface{}, error) {
			for n, entry := range raw {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				fields, ok := entry.(map[string]interface{})
				if !ok {
					return nil, errors.New(errors.ErrCodeInvalidInput, "malformed document entry")
				}
				doc := Document{
					ID:      asString(fields["id"]),
					Path:    asString(fields["path"]),
					Content: asString(fields["content"]),
				}
				if err := idx.Add(doc); err != nil {
					return nil, err
				}
				progress(float64(n+1) / float64(len(raw)))
			}
			return map[string]interface{}{"indexed": float64(len(raw))}, nil
		}, nil
	}
}

func searchBuilder(idx *Index) worker.Builder {
	return func(task *tasks.Task) (worker.Work, error) {
		query, ok := stringProp(task, "query")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "query property required",
				errors.WithTaskID(task.ID))
		}
		limit := 10
		if v, ok := task.Properties["limit"].(float64); ok {
			limit = int(v)
		}
		return func(ctx context.Context, progress func(float64)) (interface{}, error) {
			hits, total, err := idx.Search(query, limit)
			if err != nil {
				return nil, err
			}
			out := make([]interface{}, 0, len(hits))
			for _, hit := range hits {
				out = append(out, map[string]interface{}{"id": hit.ID, "score": hit.Score})
			}
			return map[string]interface{}{"hits": out, "total": float64(total)}, nil
		}, nil
	}
}

func stringProp(task *tasks.Task, key string) (string, bool) {
	v, ok := task.Properties[key].(string)
	return v, ok && v != ""
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
