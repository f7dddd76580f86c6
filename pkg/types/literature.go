// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Placeholder values used when a PubMed record lacks a field. Records never
// carry empty strings for these fields except PublicationDate.
const (
	TitleUnavailable    = "Title not available"
	AbstractUnavailable = "Abstract not available"
	AuthorsUnavailable  = "Authors not available"
	JournalUnavailable  = "Journal information not available"
	JournalTitleMissing = "Journal title not available"
	KeywordsUnavailable = "No keywords available"
)

// LiteratureRecord is one PubMed article fetched for a run.
type LiteratureRecord struct {
	// ID is the PubMed identifier (PMID).
	ID string `json:"id" yaml:"id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the concatenated abstract text.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors is "Last, First" per author joined by "; ", in source order.
	Authors string `json:"authors" yaml:"authors"`

	// Journal is the journal title.
	Journal string `json:"journal" yaml:"journal"`

	// PublicationDate is "Year Month", "Year", or empty when unknown.
	PublicationDate string `json:"publicationDate" yaml:"publication_date"`

	// Keywords is the comma-joined keyword list.
	Keywords string `json:"keywords" yaml:"keywords"`

	// URL links to the article on pubmed.ncbi.nlm.nih.gov.
	URL string `json:"url" yaml:"url"`
}
