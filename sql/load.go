package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed projects.sql
var projectsSQL string

//go:embed papers.sql
var papersSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed clusters.sql
var clustersSQL string

//go:embed gaps.sql
var gapsSQL string

//go:embed ingest_jobs.sql
var ingestJobsSQL string

// Function manifests used to decide whether a domain's SQL functions
// still need loading (checkFunctions) or are already present.
var ProjectsFunctions = []string{
	"init_projects", "insert_project", "select_project", "select_all_projects", "delete_project",
}

var PapersFunctions = []string{
	"init_papers", "insert_paper", "select_paper", "select_papers_by_project",
	"search_papers", "delete_paper",
}

var EntitiesFunctions = []string{
	"init_entities", "insert_entity", "select_entity", "select_entity_by_normalized_name",
	"select_entities_by_kind", "select_entities_by_project", "search_entities",
	"select_entities_by_similarity", "select_entities_without_cluster",
	"update_entity_merge", "update_entity_centrality", "update_entity_cluster", "delete_entity",
}

var RelationshipsFunctions = []string{
	"init_relationships", "insert_relationship", "insert_relationship_evidence",
	"select_relationship", "select_relationship_evidence", "select_relationships_from_entity",
	"select_relationships_to_entity", "select_relationships_connected", "select_relationships_by_project",
	"update_relationship_weight", "rewrite_relationships_endpoint",
	"insert_resolution_decision", "select_resolution_decision", "delete_relationship",
}

var ChunksFunctions = []string{
	"init_chunks", "insert_chunk", "select_chunk", "select_chunks_by_paper",
	"select_chunks_by_parent", "select_chunk_siblings", "select_chunks_by_similarity",
	"search_chunks", "update_chunk_embedding", "delete_chunk",
}

var ClustersFunctions = []string{
	"init_clusters", "insert_cluster", "select_cluster", "select_clusters_by_project",
	"delete_clusters_by_project",
}

var GapsFunctions = []string{
	"init_gaps", "insert_gap", "select_gap", "select_gaps_by_project",
	"update_gap_status", "delete_gaps_by_project",
}

var IngestJobsFunctions = []string{
	"init_ingest_jobs", "insert_ingest_job", "select_ingest_job",
	"update_ingest_job_progress", "delete_ingest_job",
}

// Init initializes database extensions and the schema-version ledger.
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

func loadDomain(db *sql.DB, domainSQL string, functions []string, force bool, label string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", label, err)
		}
		if exist {
			return nil
		}
	}

	if _, err := db.Exec(domainSQL); err != nil {
		return fmt.Errorf("error executing %s SQL: %w", label, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", label)
	}

	log.Printf("SQL %s functions loaded successfully", label)
	return nil
}

func LoadProjectsSql(db *sql.DB, force bool) error {
	return loadDomain(db, projectsSQL, ProjectsFunctions, force, "projects")
}

func LoadPapersSql(db *sql.DB, force bool) error {
	return loadDomain(db, papersSQL, PapersFunctions, force, "papers")
}

func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadDomain(db, entitiesSQL, EntitiesFunctions, force, "entities")
}

func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return loadDomain(db, relationshipsSQL, RelationshipsFunctions, force, "relationships")
}

func LoadChunksSql(db *sql.DB, force bool) error {
	return loadDomain(db, chunksSQL, ChunksFunctions, force, "chunks")
}

func LoadClustersSql(db *sql.DB, force bool) error {
	return loadDomain(db, clustersSQL, ClustersFunctions, force, "clusters")
}

func LoadGapsSql(db *sql.DB, force bool) error {
	return loadDomain(db, gapsSQL, GapsFunctions, force, "gaps")
}

func LoadIngestJobsSql(db *sql.DB, force bool) error {
	return loadDomain(db, ingestJobsSQL, IngestJobsFunctions, force, "ingest_jobs")
}

// LoadAllSql loads every domain's SQL functions in dependency order:
// projects first (everything references it), then papers and entities,
// then relationships and chunks (which reference entities/papers), then
// the derived clusters/gaps/ingest_jobs domains.
func LoadAllSql(db *sql.DB, force bool) error {
	loaders := []func(*sql.DB, bool) error{
		LoadProjectsSql,
		LoadPapersSql,
		LoadEntitiesSql,
		LoadRelationshipsSql,
		LoadChunksSql,
		LoadClustersSql,
		LoadGapsSql,
		LoadIngestJobsSql,
	}
	for _, load := range loaders {
		if err := load(db, force); err != nil {
			return err
		}
	}
	return nil
}

// checkFunctions verifies that all required functions exist in the database.
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
