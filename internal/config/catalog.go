package config

import (
	"fmt"
	"sort"
)

// TrainingProgram is the metadata and price of one course code.
type TrainingProgram struct {
	Code              string   `yaml:"code" json:"code"`
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description" json:"description"`
	Duration          string   `yaml:"duration" json:"duration"`
	ProcessingTime    string   `yaml:"processing_time" json:"processingTime"`
	Certificate       string   `yaml:"certificate" json:"certificate"`
	Price             int64    `yaml:"price" json:"price"`
	RequiredDocuments []string `yaml:"required_documents" json:"requiredDocuments"`
	OptionalDocuments []string `yaml:"optional_documents" json:"optionalDocuments"`
}

// RequiresBSTCertificate reports whether the program needs a prior BST certificate.
func (p TrainingProgram) RequiresBSTCertificate() bool {
	for _, d := range p.RequiredDocuments {
		if d == "sertifikat_bst" {
			return true
		}
	}
	return false
}

// TrainingCatalog is the single source of program prices and document rules.
type TrainingCatalog struct {
	Programs []TrainingProgram `yaml:"programs"`
}

func (c TrainingCatalog) Get(code string) (TrainingProgram, bool) {
	for _, p := range c.Programs {
		if p.Code == code {
			return p, true
		}
	}
	return TrainingProgram{}, false
}

func (c TrainingCatalog) Has(code string) bool {
	_, ok := c.Get(code)
	return ok
}

// Price returns 0 for unknown programs.
func (c TrainingCatalog) Price(code string) int64 {
	p, _ := c.Get(code)
	return p.Price
}

func (c TrainingCatalog) Codes() []string {
	codes := make([]string, 0, len(c.Programs))
	for _, p := range c.Programs {
		codes = append(codes, p.Code)
	}
	sort.Strings(codes)
	return codes
}

func (c TrainingCatalog) Validate() error {
	seen := map[string]bool{}
	for _, p := range c.Programs {
		if p.Code == "" {
			return fmt.Errorf("training program without code")
		}
		if seen[p.Code] {
			return fmt.Errorf("duplicate training program %s", p.Code)
		}
		seen[p.Code] = true
		if p.Price <= 0 {
			return fmt.Errorf("training program %s has no price", p.Code)
		}
	}
	return nil
}

var baseDocuments = []string{"ktp", "ijazah", "foto", "surat_sehat"}

func withBST() []string {
	return append(append([]string{}, baseDocuments...), "sertifikat_bst")
}

// DefaultCatalog is used when the config file carries no training section.
func DefaultCatalog() TrainingCatalog {
	optional := []string{"passport"}
	return TrainingCatalog{Programs: []TrainingProgram{
		{
			Code: "BST", Name: "BST (Basic Safety Training)",
			Description: "Pelatihan keselamatan dasar untuk pelaut sesuai standar STCW.",
			Duration:    "10 hari", ProcessingTime: "3-4 minggu", Certificate: "BST Certificate",
			Price: 1850000, RequiredDocuments: append([]string{}, baseDocuments...), OptionalDocuments: optional,
		},
		{
			Code: "SAT", Name: "SAT (Security Awareness Training)",
			Description: "Pelatihan kesadaran keamanan kapal sesuai ISPS Code.",
			Duration:    "1 hari", ProcessingTime: "2-3 minggu", Certificate: "SAT Certificate",
			Price: 950000, RequiredDocuments: withBST(), OptionalDocuments: optional,
		},
		{
			Code: "CCM", Name: "CCM (Crowd and Crisis Management)",
			Description: "Pelatihan manajemen kerumunan dan krisis di kapal penumpang.",
			Duration:    "3 hari", ProcessingTime: "2-3 minggu", Certificate: "CCM Certificate",
			Price: 1300000, RequiredDocuments: withBST(), OptionalDocuments: optional,
		},
		{
			Code: "SDSD", Name: "SDSD (Ship Security Duties)",
			Description: "Pelatihan tugas keamanan kapal untuk designated security duties.",
			Duration:    "2 hari", ProcessingTime: "1 bulan", Certificate: "SSD Certificate",
			Price: 950000, RequiredDocuments: withBST(), OptionalDocuments: optional,
		},
		{
			Code: "PSCRB", Name: "PSCRB",
			Description: "Pelatihan operasi alat penyelamat dan perahu penolong.",
			Duration:    "2 hari", ProcessingTime: "1 bulan", Certificate: "PSCRB Certificate",
			Price: 1200000, RequiredDocuments: withBST(), OptionalDocuments: optional,
		},
		{
			Code: "SB", Name: "SB (Seaman Book)",
			Description: "Pengurusan dokumen buku pelaut sebagai identitas resmi pelaut Indonesia.",
			Duration:    "1 hari processing", ProcessingTime: "2 minggu", Certificate: "Seaman Book",
			Price: 1300000, RequiredDocuments: append([]string{}, baseDocuments...), OptionalDocuments: optional,
		},
		{
			Code: "UPDATING_BST", Name: "Updating BST",
			Description: "Penyegaran Basic Safety Training untuk perpanjangan sertifikat BST.",
			Duration:    "1 hari", ProcessingTime: "2-3 minggu", Certificate: "Updated BST Certificate",
			Price: 750000, RequiredDocuments: withBST(), OptionalDocuments: optional,
		},
	}}
}
