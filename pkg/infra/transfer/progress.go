package transfer

import "log/slog"

// progressWriter logs each completed tenth of a transfer of known size
type progressWriter struct {
	logger  *slog.Logger
	url     string
	total   int64
	written int64
	step    int64
}

func newProgressWriter(logger *slog.Logger, url string, total int64) *progressWriter {
	return &progressWriter{
		logger: logger,
		url:    url,
		total:  total,
	}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))

	step := p.written * 10 / p.total
	if step > 10 {
		step = 10
	}
	if step > p.step {
		p.step = step
		p.logger.Info("Download progress",
			"url", p.url,
			"percent", step*10,
			"bytes", p.written,
			"total_bytes", p.total,
		)
	}

	return len(b), nil
}
