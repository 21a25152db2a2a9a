package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		node_id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_name TEXT UNIQUE NOT NULL,
		in_degree INTEGER DEFAULT 0,
		out_degree INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		FOREIGN KEY (from_node_id) REFERENCES nodes(node_id),
		FOREIGN KEY (to_node_id) REFERENCES nodes(node_id),
		UNIQUE(from_node_id, to_node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_domain ON nodes(domain_name);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Batch groups the writes of one dump into a single transaction
type Batch struct {
	tx *sql.Tx
}

// Begin starts a dump transaction
func (s *Storage) Begin() (*Batch, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Batch{tx: tx}, nil
}

// UpsertNode inserts a node or refreshes its degrees if the domain exists.
// Returns the node_id of the inserted/existing node
func (b *Batch) UpsertNode(domain string, inDegree, outDegree int) (int64, error) {
	_, err := b.tx.Exec(`
		INSERT INTO nodes (domain_name, in_degree, out_degree)
		VALUES (?, ?, ?)
		ON CONFLICT(domain_name) DO UPDATE SET
			in_degree = EXCLUDED.in_degree,
			out_degree = EXCLUDED.out_degree
	`, domain, inDegree, outDegree)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert node: %w", err)
	}

	var nodeID int64
	err = b.tx.QueryRow("SELECT node_id FROM nodes WHERE domain_name = ?", domain).Scan(&nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve node_id: %w", err)
	}

	return nodeID, nil
}

// UpsertEdge inserts a new edge, ignoring duplicates
func (b *Batch) UpsertEdge(fromID, toID int64) error {
	_, err := b.tx.Exec(`
		INSERT INTO edges (from_node_id, to_node_id)
		VALUES (?, ?)
		ON CONFLICT(from_node_id, to_node_id) DO NOTHING
	`, fromID, toID)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// Commit makes the batch durable
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the batch
func (b *Batch) Rollback() error {
	return b.tx.Rollback()
}

// Counts returns the number of stored nodes and edges
func (s *Storage) Counts() (nodes, edges int, err error) {
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&nodes); err != nil {
		return 0, 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return nodes, edges, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
