package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed resources.sql
var resourcesSQL string

//go:embed citations.sql
var citationsSQL string

//go:embed graph_edges.sql
var graphEdgesSQL string

//go:embed hypotheses.sql
var hypothesesSQL string

// Function lists for verification
var ResourcesFunctions = []string{
	"init_resources",
	"insert_resource",
	"select_resource",
	"select_resources_by_ids",
	"select_all_resources",
	"select_resources_with_signal",
	"select_resources_by_similarity",
	"select_resources_by_subjects",
	"select_resources_by_classification",
	"search_resources_by_text",
	"select_resource_source_urls",
	"update_resource_embedding",
	"update_resource_annotations",
	"delete_resource",
}

var CitationsFunctions = []string{
	"init_citations",
	"insert_citation",
	"select_citation",
	"select_citations_by_source",
	"select_unresolved_citations",
	"select_resolved_citations",
	"resolve_citation",
	"update_citation_importance",
	"delete_citation",
}

var GraphEdgesFunctions = []string{
	"init_graph_edges",
	"insert_graph_edge",
	"select_graph_edge",
	"select_all_graph_edges",
	"select_graph_edges_among",
	"select_graph_edges_by_resource",
	"update_graph_edge_weight",
	"delete_graph_edge",
}

var HypothesesFunctions = []string{
	"init_hypotheses",
	"insert_hypothesis",
	"select_hypothesis",
	"select_hypotheses_by_concepts",
	"delete_hypothesis",
}

// Init intializes db extensions and shared trigger functions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadResourcesSql loads resource-related SQL functions
func LoadResourcesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "resources", resourcesSQL, ResourcesFunctions, force)
}

// LoadCitationsSql loads citation-related SQL functions
func LoadCitationsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "citations", citationsSQL, CitationsFunctions, force)
}

// LoadGraphEdgesSql loads graph edge related SQL functions
func LoadGraphEdgesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "graph edges", graphEdgesSQL, GraphEdgesFunctions, force)
}

// LoadHypothesesSql loads hypothesis-related SQL functions
func LoadHypothesesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "hypotheses", hypothesesSQL, HypothesesFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadResourcesSql(db, force); err != nil {
		return err
	}

	if err := LoadCitationsSql(db, force); err != nil {
		return err
	}

	if err := LoadGraphEdgesSql(db, force); err != nil {
		return err
	}

	if err := LoadHypothesesSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadFunctions executes the script unless all functions already exist and force is false.
func loadFunctions(db *sql.DB, name string, script string, sqlFunctions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, sqlFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, sqlFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
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
