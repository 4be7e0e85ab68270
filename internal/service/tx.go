package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Items() CurationRepositoryInterface
	Documents() DocumentRepositoryInterface
	Training() TrainingExampleRepositoryInterface
	Attachments() AttachmentRepositoryInterface
	SearchIndex() SearchIndexRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
