// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dataset maintains the dataset catalog: the datasets.json document
// describing which stores this deployment serves, plus optional per-dataset
// metadata snapshots. The catalog can watch its backing file and refresh
// itself when a new deployment lands.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CatalogFileName is the catalog document inside the processed-data dir.
const CatalogFileName = "datasets.json"

// Descriptor is one catalog entry.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Document is the datasets.json payload, returned verbatim by the list
// endpoint.
type Document struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Datasets    []Descriptor `json:"datasets"`
}

// Catalog serves catalog lookups and optionally watches the backing file.
type Catalog struct {
	dir    string
	logger *zap.Logger

	mu  sync.RWMutex
	doc Document

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads datasets.json from dir. A deployment without a catalog is
// broken, so a missing or malformed file is an error.
func Load(dir string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{dir: dir, logger: logger}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	path := filepath.Join(c.dir, CatalogFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dataset: read catalog %q: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("dataset: parse catalog %q: %w", path, err)
	}

	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()
	return nil
}

// Document returns the current catalog document.
func (c *Catalog) Document() Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Get looks up one dataset by id.
func (c *Catalog) Get(id string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.doc.Datasets {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Snapshot reads the optional per-dataset metadata snapshot <id>.json.
// Returns false when the file does not exist.
func (c *Catalog) Snapshot(id string) (map[string]any, bool, error) {
	path := filepath.Join(c.dir, id+".json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dataset: read snapshot %q: %w", path, err)
	}
	var snap map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("dataset: parse snapshot %q: %w", path, err)
	}
	return snap, true, nil
}

// Watch refreshes the catalog whenever datasets.json changes and invokes
// onChange after each successful reload. Call Close to stop watching.
func (c *Catalog) Watch(onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dataset: create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("dataset: watch %q: %w", c.dir, err)
	}
	c.watcher = watcher
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != CatalogFileName {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := c.reload(); err != nil {
					c.logger.Warn("catalog reload failed", zap.Error(err))
					continue
				}
				c.logger.Info("catalog reloaded", zap.String("file", ev.Name))
				if onChange != nil {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("catalog watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	<-c.done
	return err
}
