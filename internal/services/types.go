package services

import "time"

// MessageRef identifies one mailbox message returned by a search.
type MessageRef struct {
	ID string
}

// MessageHeaders carries the envelope fields used for logging context and
// the sender-derived destination folder.
type MessageHeaders struct {
	From    string
	Subject string
}

// PartBody is the payload of a leaf node. Small bodies arrive inline in
// Data; larger attachments carry an AttachmentID to fetch separately.
type PartBody struct {
	AttachmentID string
	Data         []byte
}

// MessagePart is one node of a message payload tree. A node with child
// Parts is a branch; a node without children is a leaf, which qualifies as
// an attachment only if it declares both a filename and a body reference.
type MessagePart struct {
	Filename string
	MimeType string
	Body     PartBody
	Parts    []MessagePart
}

// StoredFile is one candidate source document discovered in the file store.
// Its Name is the dedup key against the ledger's source-file column.
type StoredFile struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
}

// HarvestStats counts the outcomes of one harvest pass. Walks of the
// payload tree return a stats value per call; callers merge them.
type HarvestStats struct {
	EmailsChecked int
	Uploaded      int
	Skipped       int
	Filtered      int
	Failed        int
}

func (s HarvestStats) merge(other HarvestStats) HarvestStats {
	s.EmailsChecked += other.EmailsChecked
	s.Uploaded += other.Uploaded
	s.Skipped += other.Skipped
	s.Filtered += other.Filtered
	s.Failed += other.Failed
	return s
}
