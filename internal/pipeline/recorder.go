package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sweeney/fridge-thermostat/internal/logic"
)

// Recorder receives a copy of every completed record.
type Recorder interface {
	Record(rec logic.Record)
}

// SliceRecorder keeps every record in memory.
type SliceRecorder struct {
	Records []logic.Record
}

// Record implements Recorder.
func (s *SliceRecorder) Record(rec logic.Record) {
	s.Records = append(s.Records, rec)
}

var csvHeader = []string{
	"timestamp",
	"setpoint_raw", "setpoint_clipped", "setpoint_filtered", "setpoint_mdeg",
	"current_raw", "current_clipped", "current_filtered", "current_mdeg",
	"compressor", "led", "fault",
}

// CSVRecorder writes one CSV row per record.
type CSVRecorder struct {
	w   *csv.Writer
	err error
}

// NewCSVRecorder writes the header row to w.
func NewCSVRecorder(w io.Writer) (*CSVRecorder, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSVRecorder{w: cw}, nil
}

// Record implements Recorder. The first write error is kept and returned by Flush.
func (c *CSVRecorder) Record(rec logic.Record) {
	if c.err != nil {
		return
	}
	row := []string{
		strconv.FormatUint(rec.Timestamp, 10),
		strconv.Itoa(rec.SetpointRaw),
		strconv.Itoa(rec.SetpointClipped),
		strconv.Itoa(rec.SetpointFiltered),
		strconv.Itoa(rec.SetpointMdeg),
		strconv.Itoa(rec.CurrentRaw),
		strconv.Itoa(rec.CurrentClipped),
		strconv.Itoa(rec.CurrentFiltered),
		strconv.Itoa(rec.CurrentMdeg),
		strconv.FormatBool(rec.Compressor),
		strconv.FormatBool(rec.LED),
		strconv.FormatBool(rec.Fault),
	}
	c.err = c.w.Write(row)
}

// Flush writes buffered rows.
func (c *CSVRecorder) Flush() error {
	c.w.Flush()
	if c.err != nil {
		return c.err
	}
	return c.w.Error()
}
