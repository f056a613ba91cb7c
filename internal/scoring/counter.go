package scoring

// Report is the final benchmark summary
type Report struct {
	Processed    int
	Top1Accuracy float64
	Top5Accuracy float64
}

// Counter accumulates match results. It is not safe for concurrent use;
// parallel workers should keep their own Counter and Merge them at the end.
type Counter struct {
	processed int
	top1      int
	top5      int
}

// Record adds a single match result
func (c *Counter) Record(r MatchResult) {
	c.processed++
	if r.Top1 {
		c.top1++
	}
	if r.Top5 {
		c.top5++
	}
}

// RecordAll adds the results of one batch
func (c *Counter) RecordAll(results []MatchResult) {
	for _, r := range results {
		c.Record(r)
	}
}

// Merge folds another counter's totals into c
func (c *Counter) Merge(other Counter) {
	c.processed += other.processed
	c.top1 += other.top1
	c.top5 += other.top5
}

// Processed returns the number of recorded results
func (c *Counter) Processed() int {
	return c.processed
}

// Report returns the processed count and accuracy ratios
func (c *Counter) Report() (Report, error) {
	if c.processed == 0 {
		return Report{}, ErrNoImagesProcessed
	}
	return Report{
		Processed:    c.processed,
		Top1Accuracy: float64(c.top1) / float64(c.processed),
		Top5Accuracy: float64(c.top5) / float64(c.processed),
	}, nil
}
