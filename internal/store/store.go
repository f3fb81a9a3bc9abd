// Package store persists integration runs: a metadata JSON document plus a
// CSV trajectory per run, under a base directory.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/stiffode/internal/bdf"
	"github.com/san-kum/stiffode/internal/runner"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Problem   string    `json:"problem"`
	Timestamp time.Time `json:"timestamp"`
	T0        float64   `json:"t0"`
	T1        float64   `json:"t1"`
	Dt0       float64   `json:"dt0"`
	Rtol      float64   `json:"rtol"`
	Atol      float64   `json:"atol"`
	MaxOrder  int       `json:"max_order"`
	Stats     bdf.Stats `json:"stats"`
}

// Save writes one run to disk and returns its generated ID. The solution
// CSV holds one row per sample (time, then the state components); the
// per-step telemetry goes to a second CSV alongside it.
func (s *Store) Save(meta RunMetadata, result *runner.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Problem, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Stats = result.Stats

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "solution.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(result.States) == 0 {
		return runID, nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("y%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'g', -1, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, s.saveSteps(runDir, result)
}

// saveSteps writes the per-step telemetry alongside the trajectory.
func (s *Store) saveSteps(runDir string, result *runner.Result) error {
	if len(result.StepTimes) == 0 {
		return nil
	}
	f, err := os.Create(filepath.Join(runDir, "steps.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time", "dt", "order", "error"}); err != nil {
		return err
	}
	for i := range result.StepTimes {
		row := []string{
			strconv.FormatFloat(result.StepTimes[i], 'g', -1, 64),
			strconv.FormatFloat(result.DtHist[i], 'g', -1, 64),
			strconv.Itoa(result.OrderHist[i]),
			strconv.FormatFloat(result.ErrHist[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads back the sampled trajectory of a run.
func (s *Store) LoadSeries(runID string) (times []float64, states [][]float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "solution.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	for _, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				v = 0
			}
			row = append(row, v)
		}
		times = append(times, t)
		states = append(states, row)
	}
	return times, states, nil
}
