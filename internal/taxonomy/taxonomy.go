// Package taxonomy holds the selectable categories and payment methods.
package taxonomy

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const (
	CategoriesFile     = "seed_categories.txt"
	PaymentMethodsFile = "seed_payment_methods.txt"
)

var (
	DefaultCategories = []string{
		"Food", "Transport", "Shopping", "Entertainment", "Bills",
		"Health", "Education", "Job", "Salary", "Investment", "Other",
	}
	DefaultPaymentMethods = []string{"Cash", "Card", "UPI", "Bank", "Wallet"}
)

// Taxonomy is immutable after construction.
type Taxonomy struct {
	categories []string
	payments   []string
}

func New(categories, payments []string) Taxonomy {
	return Taxonomy{categories: dedupe(categories), payments: dedupe(payments)}
}

// Load reads the seed files under dir, falling back to the defaults for any
// file that is missing or empty.
func Load(dir string) Taxonomy {
	cats := readLines(filepath.Join(dir, CategoriesFile))
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	pays := readLines(filepath.Join(dir, PaymentMethodsFile))
	if len(pays) == 0 {
		pays = DefaultPaymentMethods
	}
	return New(cats, pays)
}

func (t Taxonomy) Categories() []string {
	return append([]string(nil), t.categories...)
}

func (t Taxonomy) PaymentMethods() []string {
	return append([]string(nil), t.payments...)
}

// HasCategory is used to keep a stored value selectable when editing even if
// it has since left the seed file.
func (t Taxonomy) HasCategory(c string) bool {
	return contains(t.categories, c)
}

func (t Taxonomy) HasPaymentMethod(p string) bool {
	return contains(t.payments, p)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims, drops blanks and repeats, and keeps input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
