package readers

import (
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// NewArrowReader reads every record batch of an Arrow IPC file.
func NewArrowReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Arrow reader")
	}

	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Arrow file: %w", err)
	}
	defer f.Close()

	reader, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}
	defer reader.Close()

	r := newRecordReader(reader.Schema())
	for i := 0; i < reader.NumRecords(); i++ {
		rec, err := reader.RecordAt(i)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to read record at index %d: %w", i, err)
		}
		r.records = append(r.records, rec)
	}
	return r, nil
}
