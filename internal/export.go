package internal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SessionBatch is the decoded output of the generative model for a set of
// sessions: per-session attributes, per-timestep features and the flag that
// marks which timesteps are active.
type SessionBatch struct {
	SessionFields []string
	SeriesFields  []string
	Sessions      [][]string   // [session][attribute]
	Series        [][][]string // [session][timestep][feature]
	Flags         [][]float64  // [session][timestep], 1 marks an active step
}

func (b SessionBatch) validate() error {
	if len(b.Sessions) != len(b.Flags) || len(b.Series) != len(b.Flags) {
		return fmt.Errorf("sessions: %d attribute rows, %d series, %d flag rows", len(b.Sessions), len(b.Series), len(b.Flags))
	}

	for i := range b.Flags {
		if len(b.Sessions[i]) != len(b.SessionFields) {
			return fmt.Errorf("session %d has %d attributes, want %d", i, len(b.Sessions[i]), len(b.SessionFields))
		}
		if len(b.Series[i]) < len(b.Flags[i]) {
			return fmt.Errorf("session %d has %d timesteps, flags cover %d", i, len(b.Series[i]), len(b.Flags[i]))
		}
		for j := range b.Flags[i] {
			if b.Flags[i][j] == 1 && len(b.Series[i][j]) != len(b.SeriesFields) {
				return fmt.Errorf("session %d step %d has %d features, want %d", i, j, len(b.Series[i][j]), len(b.SeriesFields))
			}
		}
	}
	return nil
}

// WriteSessionsCSV writes one row per active timestep of every session into
// a new file data_<name>_<random>.csv under dir and returns its path.
func WriteSessionsCSV(dir, name string, batch SessionBatch) (string, error) {
	if err := batch.validate(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("data_%s_%s.csv", name, uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)

	header := make([]string, 0, len(batch.SessionFields)+len(batch.SeriesFields))
	header = append(header, batch.SessionFields...)
	header = append(header, batch.SeriesFields...)
	if err := w.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("write header: %w", err)
	}

	for i, flags := range batch.Flags {
		for j, flag := range flags {
			if flag != 1 {
				continue
			}
			row := make([]string, 0, len(header))
			row = append(row, batch.Sessions[i]...)
			row = append(row, batch.Series[i][j]...)
			if err := w.Write(row); err != nil {
				f.Close()
				return "", fmt.Errorf("write session %d step %d: %w", i, j, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush csv: %w", err)
	}

	return path, f.Close()
}
