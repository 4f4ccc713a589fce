// Package snapshot persists concept memory to a sqlite file so a host
// process can checkpoint and resume a reasoner across restarts. It is
// optional diagnostic/operational infrastructure: nothing in the inference
// cycle depends on it, and a reasoner with no configured snapshot path
// behaves exactly as if the package did not exist.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ona/internal/concept"
	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/term"
	"ona/internal/truth"
)

// Store wraps a sqlite-backed checkpoint file, with prepared statements for
// the upsert path Save exercises every call.
type Store struct {
	db *sql.DB

	stmtUpsertConcept *sql.Stmt
	stmtInsertImp     *sql.Stmt
}

// Open creates or opens the sqlite file at path, applying schema migration
// and pragma tuning the way the teacher's storage layer does for its own
// sqlite backend.
func Open(path string, busyTimeoutMs int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot: path must not be empty")
	}
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMs)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: ping %s: %w", path, err)
	}
	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare() error {
	var err error
	s.stmtUpsertConcept, err = s.db.Prepare(`
		INSERT INTO concepts (key, priority, usefulness, use_count, last_used, belief, belief_spike)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			priority = excluded.priority,
			usefulness = excluded.usefulness,
			use_count = excluded.use_count,
			last_used = excluded.last_used,
			belief = excluded.belief,
			belief_spike = excluded.belief_spike
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare upsert concept: %w", err)
	}

	s.stmtInsertImp, err = s.db.Prepare(`
		INSERT INTO implications (concept_key, term, frequency, confidence, stamp, offset_time, creation_time, is_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare insert implication: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// beliefDTO is the JSON shape an event.Event's belief/spike is stored as.
// The event's own Term is not repeated here: it is always the concept key's
// term re-derived on load via term.Parse.
type beliefDTO struct {
	Frequency      float64 `json:"frequency"`
	Confidence     float64 `json:"confidence"`
	Stamp          string  `json:"stamp"`
	OccurrenceTime int     `json:"occurrence_time"`
	CreationTime   int     `json:"creation_time"`
	Input          bool    `json:"input"`
	Executed       bool    `json:"executed"`
}

func encodeBelief(ev *event.Event) (string, error) {
	if ev == nil {
		return "", nil
	}
	dto := beliefDTO{
		Frequency:      ev.Truth.Frequency,
		Confidence:     ev.Truth.Confidence,
		Stamp:          encodeStamp(ev.Stamp),
		OccurrenceTime: ev.OccurrenceTime,
		CreationTime:   ev.CreationTime,
		Input:          ev.Input,
		Executed:       ev.Executed,
	}
	b, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeBelief(key term.Term, kind event.Kind, raw string) (*event.Event, error) {
	if raw == "" {
		return nil, nil
	}
	var dto beliefDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, err
	}
	stamp, err := decodeStamp(dto.Stamp)
	if err != nil {
		return nil, err
	}
	return &event.Event{
		Term:           key,
		Kind:           kind,
		Truth:          truth.Value{Frequency: dto.Frequency, Confidence: dto.Confidence},
		Stamp:          stamp,
		OccurrenceTime: dto.OccurrenceTime,
		CreationTime:   dto.CreationTime,
		Input:          dto.Input,
		Executed:       dto.Executed,
	}, nil
}

// encodeStamp renders a Stamp as its ascending IDs joined by commas, the
// same ordering event.Stamp.IDs already provides for deterministic output.
func encodeStamp(st event.Stamp) string {
	ids := st.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func decodeStamp(s string) (event.Stamp, error) {
	if s == "" {
		return event.NewStamp(), nil
	}
	fields := strings.Split(s, ",")
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("snapshot: malformed stamp field %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return event.NewStamp(ids...), nil
}

// Save writes every concept in mem to the database, replacing whichever
// snapshot the store previously held. Concepts are visited in sorted key
// order so the resulting file is byte-identical across runs given identical
// memory contents, easing diffing between checkpoints.
func (s *Store) Save(mem *concept.Memory) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin save: %w", err)
	}
	defer tx.Rollback()

	keys := mem.AllKeys()
	sort.Strings(keys)

	// A checkpoint is a full replacement, not an incremental merge: drop
	// whatever concepts the previous snapshot held that mem no longer has
	// (evicted or reset since), then repopulate from scratch. Implications
	// cascade on delete per the foreign key in schema.go.
	if _, err := tx.Exec(`DELETE FROM concepts`); err != nil {
		return fmt.Errorf("snapshot: clear previous snapshot: %w", err)
	}

	txUpsertConcept := tx.Stmt(s.stmtUpsertConcept)
	txInsertImp := tx.Stmt(s.stmtInsertImp)

	for _, k := range keys {
		c, ok := mem.GetByKeyString(k)
		if !ok {
			continue
		}

		beliefJSON, err := encodeBelief(c.Belief)
		if err != nil {
			return fmt.Errorf("snapshot: encode belief for %s: %w", k, err)
		}
		spikeJSON, err := encodeBelief(c.BeliefSpike)
		if err != nil {
			return fmt.Errorf("snapshot: encode belief spike for %s: %w", k, err)
		}

		if _, err := txUpsertConcept.Exec(k, c.Priority, c.Usefulness, c.UseCount, c.LastUsed, nullable(beliefJSON), nullable(spikeJSON)); err != nil {
			return fmt.Errorf("snapshot: upsert concept %s: %w", k, err)
		}

		var saveErr error
		c.IterateImplications(func(imp implication.Implication) bool {
			_, saveErr = txInsertImp.Exec(k, term.Format(imp.Term), imp.Truth.Frequency, imp.Truth.Confidence,
				encodeStamp(imp.Stamp), imp.Offset, imp.CreationTime, 0)
			return saveErr == nil
		})
		if saveErr != nil {
			return fmt.Errorf("snapshot: insert implication under %s: %w", k, saveErr)
		}

		linkKeys := make([]string, 0, len(c.ImplicationLinks))
		for lk := range c.ImplicationLinks {
			linkKeys = append(linkKeys, lk)
		}
		sort.Strings(linkKeys)
		for _, lk := range linkKeys {
			imp := c.ImplicationLinks[lk]
			if _, err := txInsertImp.Exec(k, term.Format(imp.Term), imp.Truth.Frequency, imp.Truth.Confidence,
				encodeStamp(imp.Stamp), imp.Offset, imp.CreationTime, 1); err != nil {
				return fmt.Errorf("snapshot: insert implication link under %s: %w", k, err)
			}
		}
	}

	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Load restores every concept and implication in the store into mem, an
// already-constructed (typically empty) concept.Memory. Belief and spike
// restoration assigns the concept's fields directly rather than going
// through Memory.AddEvent: AddEvent bumps priority and use-count as a side
// effect of deposit, which would corrupt a faithfully restored priority.
// Implications restore through Memory.AddImplication, which has no such
// side effect and correctly re-derives each implication's operation-table
// placement from whatever operation registry mem was constructed with.
func (s *Store) Load(mem *concept.Memory) error {
	rows, err := s.db.Query(`SELECT key, priority, usefulness, use_count, last_used, belief, belief_spike FROM concepts`)
	if err != nil {
		return fmt.Errorf("snapshot: query concepts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key                  string
			priority, usefulness float64
			useCount, lastUsed   int
			beliefRaw, spikeRaw  sql.NullString
		)
		if err := rows.Scan(&key, &priority, &usefulness, &useCount, &lastUsed, &beliefRaw, &spikeRaw); err != nil {
			return fmt.Errorf("snapshot: scan concept row: %w", err)
		}

		keyTerm := term.Parse(key)
		c := mem.GetOrCreate(keyTerm)
		c.Priority = priority
		c.Usefulness = usefulness
		c.UseCount = useCount
		c.LastUsed = lastUsed

		belief, err := decodeBelief(keyTerm, event.Belief, beliefRaw.String)
		if err != nil {
			return fmt.Errorf("snapshot: decode belief for %s: %w", key, err)
		}
		c.Belief = belief

		spike, err := decodeBelief(keyTerm, event.Belief, spikeRaw.String)
		if err != nil {
			return fmt.Errorf("snapshot: decode belief spike for %s: %w", key, err)
		}
		c.BeliefSpike = spike
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("snapshot: iterate concepts: %w", err)
	}

	impRows, err := s.db.Query(`SELECT term, frequency, confidence, stamp, offset_time, creation_time, is_link FROM implications`)
	if err != nil {
		return fmt.Errorf("snapshot: query implications: %w", err)
	}
	defer impRows.Close()

	for impRows.Next() {
		var (
			termStr               string
			frequency, confidence float64
			stampStr              string
			offset                float64
			creationTime          int
			isLink                int
		)
		if err := impRows.Scan(&termStr, &frequency, &confidence, &stampStr, &offset, &creationTime, &isLink); err != nil {
			return fmt.Errorf("snapshot: scan implication row: %w", err)
		}
		stamp, err := decodeStamp(stampStr)
		if err != nil {
			return err
		}
		impTerm := term.Parse(termStr)
		tv := truth.Value{Frequency: frequency, Confidence: confidence}

		if isLink != 0 {
			// A declarative implication link's term is a non-temporal <A ==> B>,
			// which implication.New rejects: build it directly instead.
			imp := implication.Implication{Term: impTerm, Truth: tv, Stamp: stamp, Offset: offset, CreationTime: creationTime}
			mem.AddImplicationLink(imp, truth.DefaultEvidentialHorizon)
			continue
		}
		imp := implication.New(impTerm, tv, stamp, offset, creationTime)
		mem.AddImplication(imp, truth.DefaultEvidentialHorizon)
	}
	if err := impRows.Err(); err != nil {
		return fmt.Errorf("snapshot: iterate implications: %w", err)
	}

	return nil
}
