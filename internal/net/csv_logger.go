package net

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// CSVLogger writes one row per epoch to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool
	Logger   logrus.FieldLogger

	file   *os.File
	writer *csv.Writer
	start  time.Time
	lr     float64
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool, logger logrus.FieldLogger) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
		Logger:   logger,
	}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0o644)
	if err != nil {
		c.Logger.WithError(err).WithField("file", c.Filename).Warn("csv logger disabled")
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write([]string{"epoch", "loss", "learning_rate", "time_seconds"})
	}
}

func (c *CSVLogger) OnEpochBegin(epoch int, lr float64, n *Network) {
	c.lr = lr
}

func (c *CSVLogger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.writer == nil {
		return
	}
	c.write([]string{
		strconv.Itoa(epoch),
		strconv.FormatFloat(loss, 'f', 6, 64),
		strconv.FormatFloat(c.lr, 'g', 6, 64),
		fmt.Sprintf("%.2f", time.Since(c.start).Seconds()),
	})
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file != nil {
		c.writer.Flush()
		c.file.Close()
		c.file = nil
		c.writer = nil
	}
}

func (c *CSVLogger) write(record []string) {
	if err := c.writer.Write(record); err != nil {
		c.Logger.WithError(err).Warn("csv logger: failed to write record")
		return
	}
	c.writer.Flush()
}
