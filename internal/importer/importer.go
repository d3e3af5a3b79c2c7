package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poolcare-ownerverify/internal/normalize"
)

// DefaultBatchSize is the chunk size for the resumable roll import. One
// batch is the unit of cancellation: the caller decides after each batch
// whether to request the next.
const DefaultBatchSize = 1000

// progressSource keys the cursor row; there is one assessor roll.
const progressSource = "assessor_roll"

// Progress is the payload returned after each import batch. The caller
// uses HasMoreBatches to decide whether to continue. BatchSize is
// persisted with the cursor so resumed imports and progress reads keep
// the operator's chosen size.
type Progress struct {
	BatchNumber    int     `json:"batch_number"`
	BatchSize      int     `json:"batch_size"`
	Progress       float64 `json:"progress"`
	TotalRecords   int     `json:"total_records"`
	Inserted       int     `json:"inserted"`
	HasMoreBatches bool    `json:"has_more_batches"`
}

// rollRecord is one mapped row of the assessor roll extract.
// Columns: Parcel,Owner Name,Mail1,Mail2,Mail3,Mail4,Mail5,Zip,Zip4
type rollRecord struct {
	ParcelNumber string
	OwnerName    string
	Mail         [5]string
	Zip          string
	Zip4         string
}

// batchWindow is one read slice of the roll extract: the mapped records
// of the requested batch plus the counts needed for progress arithmetic.
type batchWindow struct {
	records   []*rollRecord
	skipped   int // data records before the window
	processed int // records consumed for the window, bad rows included
	errors    int // unreadable or unmappable rows inside the window
	remaining int // data records after the window
}

// total is the size of the whole extract as seen from this window.
func (w *batchWindow) total() int {
	return w.skipped + w.processed + w.remaining
}

// progress builds the batch payload from the window and insert count.
func (w *batchWindow) progress(batchNumber, batchSize, inserted int) *Progress {
	p := &Progress{
		BatchNumber:    batchNumber,
		BatchSize:      batchSize,
		TotalRecords:   w.total(),
		Inserted:       inserted,
		HasMoreBatches: w.remaining > 0,
	}
	if p.TotalRecords > 0 {
		p.Progress = float64(w.skipped+w.processed) / float64(p.TotalRecords) * 100
	}
	return p
}

// readBatch reads one batch window out of the roll extract: skips the
// header and earlier batches, maps up to batchSize records, then counts
// what remains. A batch starting past the end of the file is an error;
// the caller's cursor is ahead of the extract it was given.
func readBatch(filename string, batchNumber, batchSize int) (*batchWindow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open roll extract: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read roll header: %w", err)
	}

	window := &batchWindow{}

	skip := batchNumber * batchSize
	for window.skipped < skip {
		if _, err := reader.Read(); err == io.EOF {
			return nil, fmt.Errorf("batch %d starts past end of file (%d records)", batchNumber, window.skipped)
		} else if err != nil {
			return nil, fmt.Errorf("skip to batch %d: %w", batchNumber, err)
		}
		window.skipped++
	}

	for window.processed < batchSize {
		raw, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Printf("Error reading roll record: %v\n", err)
			window.errors++
			window.processed++
			continue
		}

		rec, err := mapRollRecord(raw)
		if err != nil {
			fmt.Printf("Error mapping roll record: %v\n", err)
			window.errors++
			window.processed++
			continue
		}

		window.records = append(window.records, rec)
		window.processed++
	}

	// Count what remains to size the whole extract.
	for {
		if _, err := reader.Read(); err == io.EOF {
			break
		}
		window.remaining++
	}

	return window, nil
}

// Importer loads the county assessor roll into the assessor_record table
// in fixed-size batches, idempotently per batch.
type Importer struct {
	db *sql.DB
}

// NewImporter creates a roll importer.
func NewImporter(db *sql.DB) *Importer {
	return &Importer{db: db}
}

// ImportBatch imports one batch of the roll extract. Re-running a batch is
// safe: rows are upserted by parcel number. The returned Progress carries
// the cursor for the next call.
func (im *Importer) ImportBatch(ctx context.Context, filename string, batchNumber, batchSize int) (*Progress, error) {
	if batchNumber < 0 {
		return nil, fmt.Errorf("batch number %d out of range", batchNumber)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	window, err := readBatch(filename, batchNumber, batchSize)
	if err != nil {
		return nil, err
	}

	stmt, err := im.db.PrepareContext(ctx, `
		INSERT INTO assessor_record (
			parcel_number, owner_name, mail1, mail2, mail3, mail4, mail5,
			zip, zip4, address_canonical, house_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (parcel_number) DO UPDATE SET
			owner_name = EXCLUDED.owner_name,
			mail1 = EXCLUDED.mail1,
			mail2 = EXCLUDED.mail2,
			mail3 = EXCLUDED.mail3,
			mail4 = EXCLUDED.mail4,
			mail5 = EXCLUDED.mail5,
			zip = EXCLUDED.zip,
			zip4 = EXCLUDED.zip4,
			address_canonical = EXCLUDED.address_canonical,
			house_number = EXCLUDED.house_number
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare roll insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	errors := window.errors

	for _, rec := range window.records {
		canonical, houseNumber := canonicalize(rec)

		_, err = stmt.ExecContext(ctx,
			rec.ParcelNumber, rec.OwnerName,
			rec.Mail[0], rec.Mail[1], rec.Mail[2], rec.Mail[3], rec.Mail[4],
			rec.Zip, rec.Zip4, canonical, houseNumber,
		)
		if err != nil {
			fmt.Printf("Error inserting parcel %s: %v\n", rec.ParcelNumber, err)
			errors++
			continue
		}
		inserted++
	}

	progress := window.progress(batchNumber, batchSize, inserted)
	if err := im.saveCursor(ctx, progress); err != nil {
		return nil, err
	}

	fmt.Printf("Batch %d complete: %d inserted, %d errors, %.1f%% of %d records\n",
		batchNumber, inserted, errors, progress.Progress, progress.TotalRecords)
	return progress, nil
}

// Run imports batches from fromBatch until the extract is exhausted or the
// context is cancelled. Cancellation is coarse: it is checked between
// batches, never inside one.
func (im *Importer) Run(ctx context.Context, filename string, fromBatch, batchSize int) (*Progress, error) {
	batch := fromBatch
	var last *Progress

	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		progress, err := im.ImportBatch(ctx, filename, batch, batchSize)
		if err != nil {
			return last, err
		}
		last = progress

		if !progress.HasMoreBatches {
			return last, nil
		}
		batch++
	}
}

// Cursor returns the persisted import position, or a zero Progress when no
// import has run yet.
func (im *Importer) Cursor(ctx context.Context) (*Progress, error) {
	var p Progress
	err := im.db.QueryRowContext(ctx, `
		SELECT last_batch, batch_size, total_records, inserted, has_more
		FROM import_progress
		WHERE source = $1
	`, progressSource).Scan(&p.BatchNumber, &p.BatchSize, &p.TotalRecords, &p.Inserted, &p.HasMoreBatches)

	if err == sql.ErrNoRows {
		return &Progress{BatchNumber: -1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read import cursor: %w", err)
	}

	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.TotalRecords > 0 {
		done := (p.BatchNumber + 1) * p.BatchSize
		if done > p.TotalRecords {
			done = p.TotalRecords
		}
		p.Progress = float64(done) / float64(p.TotalRecords) * 100
	}
	return &p, nil
}

func (im *Importer) saveCursor(ctx context.Context, p *Progress) error {
	_, err := im.db.ExecContext(ctx, `
		INSERT INTO import_progress (source, last_batch, batch_size, total_records, inserted, has_more, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (source) DO UPDATE SET
			last_batch = EXCLUDED.last_batch,
			batch_size = EXCLUDED.batch_size,
			total_records = EXCLUDED.total_records,
			inserted = import_progress.inserted + EXCLUDED.inserted,
			has_more = EXCLUDED.has_more,
			updated_at = now()
	`, progressSource, p.BatchNumber, p.BatchSize, p.TotalRecords, p.Inserted, p.HasMoreBatches)
	if err != nil {
		return fmt.Errorf("save import cursor: %w", err)
	}
	return nil
}

// mapRollRecord maps one CSV row to a roll record.
func mapRollRecord(raw []string) (*rollRecord, error) {
	if len(raw) < 9 {
		return nil, fmt.Errorf("insufficient columns: expected 9, got %d", len(raw))
	}

	rec := &rollRecord{
		ParcelNumber: strings.TrimSpace(raw[0]),
		OwnerName:    strings.TrimSpace(raw[1]),
		Zip:          strings.TrimSpace(raw[7]),
		Zip4:         strings.TrimSpace(raw[8]),
	}
	for i := 0; i < 5; i++ {
		rec.Mail[i] = strings.TrimSpace(raw[2+i])
	}

	if rec.ParcelNumber == "" {
		return nil, fmt.Errorf("record has no parcel number")
	}
	return rec, nil
}

// canonicalize derives the searchable columns from the mailing lines: the
// canonical form of the first line carrying a house number, and that house
// number itself.
func canonicalize(rec *rollRecord) (canonical, houseNumber string) {
	for _, line := range rec.Mail[:3] {
		if line == "" {
			continue
		}
		if n, ok := normalize.HouseNumber(normalize.Text(line)); ok {
			return normalize.Address(line), n
		}
	}
	return "", ""
}
