package models

// BatchItem is the outcome of one input entry. Err is nil on success.
type BatchItem struct {
	Index         int
	Label         string
	CertificateID string
	Token         string
	FilePath      string
	Err           error
}

func (i BatchItem) Succeeded() bool {
	return i.Err == nil
}

type BatchReport struct {
	RunID string
	Items []BatchItem
}

func (r *BatchReport) Add(item BatchItem) {
	r.Items = append(r.Items, item)
}

func (r *BatchReport) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Succeeded() {
			n++
		}
	}
	return n
}

func (r *BatchReport) Failed() int {
	return len(r.Items) - r.Succeeded()
}

func (r *BatchReport) Failures() []BatchItem {
	var out []BatchItem
	for _, it := range r.Items {
		if !it.Succeeded() {
			out = append(out, it)
		}
	}
	return out
}
