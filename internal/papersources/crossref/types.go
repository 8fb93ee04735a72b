// Package crossref provides a client for the CrossRef REST API.
//
// CrossRef is the DOI registration agency for most scholarly publishers.
// Abstracts are deposited by publishers as JATS XML fragments and are often
// missing; the client flattens them to plain text when present.
//
// API documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse is the envelope returned by GET /works.
type WorksResponse struct {
	Status  string    `json:"status"`
	Message WorksList `json:"message"`
}

// WorksList is the message body of a works search.
type WorksList struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// WorkResponse is the envelope returned by GET /works/{doi}.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// Work is a single registered work.
type Work struct {
	DOI            string    `json:"DOI"`
	URL            string    `json:"URL"`
	Title          []string  `json:"title"`
	Abstract       string    `json:"abstract"`
	Author         []Author  `json:"author"`
	ContainerTitle []string  `json:"container-title"`
	Publisher      string    `json:"publisher"`
	Type           string    `json:"type"`
	Issued         DateParts `json:"issued"`
	Published      DateParts `json:"published"`
	CitedByCount   int       `json:"is-referenced-by-count"`
	Volume         string    `json:"volume"`
	Issue          string    `json:"issue"`
	Page           string    `json:"page"`
	Link           []Link    `json:"link"`
	License        []License `json:"license"`
}

// Author is a contributor listed on a work.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	ORCID       string        `json:"ORCID"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation is an author's institution.
type Affiliation struct {
	Name string `json:"name"`
}

// DateParts holds CrossRef's partial date encoding: [[year, month, day]],
// where month and day may be absent.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Link is a full-text link deposited by the publisher.
type Link struct {
	URL                 string `json:"URL"`
	ContentType         string `json:"content-type"`
	IntendedApplication string `json:"intended-application"`
}

// License is a license statement attached to a work.
type License struct {
	URL string `json:"URL"`
}
