package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type loadedExample struct {
	path    string
	example Example
}

// LoadFolder reads every *.json example in folder using the given number of parsers.
// The result is ordered by file name.
func LoadFolder(
	ctx context.Context,
	folder string,
	workers int,
	logger *logrus.Logger,
) ([]Example, error) {
	files, err := exampleFiles(folder)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("dataset: no examples in %v", folder)
	}
	if workers < 1 {
		workers = 1
	}

	var paths = make(chan string, 16)
	var results = make(chan loadedExample, 16)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(paths)
		for _, path := range files {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case paths <- path:
			}
		}
		return nil
	})

	var wg = &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return parseExamples(ctx, paths, results)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(results)
		return nil
	})

	var loaded []loadedExample
	g.Go(func() error {
		for item := range results {
			loaded = append(loaded, item)
		}
		return nil
	})

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].path < loaded[j].path
	})
	var examples = make([]Example, len(loaded))
	for i := range loaded {
		examples[i] = loaded[i].example
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"folder":   folder,
			"examples": len(examples),
		}).Info("dataset loaded")
	}
	return examples, nil
}

func parseExamples(
	ctx context.Context,
	paths <-chan string,
	results chan<- loadedExample,
) error {
	for path := range paths {
		example, err := ReadExample(path)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case results <- loadedExample{path: path, example: example}:
		}
	}
	return nil
}

func ReadExample(path string) (Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Example{}, err
	}
	var e Example
	err = json.Unmarshal(data, &e)
	if err != nil {
		return Example{}, fmt.Errorf("dataset: %v: %w", path, err)
	}
	err = e.validate()
	if err != nil {
		return Example{}, fmt.Errorf("%v: %w", path, err)
	}
	return e, nil
}

func WriteExample(path string, e Example) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func exampleFiles(folderPath string) ([]string, error) {
	dirs, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, de := range dirs {
		if !de.IsDir() && filepath.Ext(de.Name()) == ".json" {
			result = append(result, filepath.Join(folderPath, de.Name()))
		}
	}
	return result, nil
}
