package xcf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// NA is the pedigree sentinel for "no father/mother/population known".
const NA = "NA"

// Individual is one row of a .fam side-car: a sample name, its
// father/mother (by name, or NA), and its declared sub-population (or
// NA, meaning "ALL" only).
type Individual struct {
	Name   string
	Father string
	Mother string
	Pop    string
}

// Pedigree is the decoded .fam side-car for one companion file: one
// Individual per sample, in BCF sample order, plus the derived
// name->index and population->members maps used by fill-tags and
// gtcheck.
type Pedigree struct {
	Individuals []Individual

	byName map[string]int
	byPop  map[string][]int
}

// ReadPedigree parses a .fam side-car. Rows are whitespace-separated;
// a row with fewer than 3 fields leaves Father/Mother/Pop at NA (a
// bare sample-name-only .fam, as written by a plain BCF companion with
// no pedigree, is accepted), and a row with exactly 3 fields leaves
// only Pop at NA.
func ReadPedigree(r io.Reader) (*Pedigree, error) {
	p := &Pedigree{byName: make(map[string]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		ind := Individual{Name: fields[0], Father: NA, Mother: NA, Pop: NA}
		if len(fields) >= 3 {
			ind.Father, ind.Mother = fields[1], fields[2]
			if len(fields) > 3 {
				ind.Pop = fields[3]
			}
		}
		if _, dup := p.byName[ind.Name]; dup {
			return nil, errorf("xcf.ReadPedigree", KindFormat, "duplicate sample %q at line %d", ind.Name, lineNo)
		}
		p.byName[ind.Name] = len(p.Individuals)
		p.Individuals = append(p.Individuals, ind)
	}
	if err := sc.Err(); err != nil {
		return nil, wrapErr("xcf.ReadPedigree", KindIO, err)
	}
	p.buildPopIndex()
	return p, nil
}

// NewPedigree builds a Pedigree for a plain sample list with no known
// parents or populations, the shape produced when a companion BCF
// carries its own samples and no .fam is present.
func NewPedigree(names []string) *Pedigree {
	p := &Pedigree{byName: make(map[string]int, len(names))}
	for _, n := range names {
		p.byName[n] = len(p.Individuals)
		p.Individuals = append(p.Individuals, Individual{Name: n, Father: NA, Mother: NA, Pop: NA})
	}
	p.buildPopIndex()
	return p
}

func (p *Pedigree) buildPopIndex() {
	p.byPop = make(map[string][]int)
	for i, ind := range p.Individuals {
		p.byPop["ALL"] = append(p.byPop["ALL"], i)
		if ind.Pop != NA {
			p.byPop[ind.Pop] = append(p.byPop[ind.Pop], i)
		}
	}
}

// Write serializes the pedigree back out in .fam form.
func (p *Pedigree) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, ind := range p.Individuals {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n", ind.Name, ind.Father, ind.Mother, ind.Pop); err != nil {
			return wrapErr("xcf.Pedigree.Write", KindIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return wrapErr("xcf.Pedigree.Write", KindIO, err)
	}
	return nil
}

// N returns the number of samples.
func (p *Pedigree) N() int { return len(p.Individuals) }

// IndexOf returns the sample index for name, or (-1, false).
func (p *Pedigree) IndexOf(name string) (int, bool) {
	i, ok := p.byName[name]
	return i, ok
}

// Subset builds the Pedigree for a named sample list, in the order
// given, alongside the original sample indices each selected
// Individual came from (the index view.go's --samples path needs to
// slice a GenotypeVector down to the same subset). A name absent from
// p is fatal unless force is set, in which case it is skipped — the
// "subsample names not present in the input" warning-channel rule.
func (p *Pedigree) Subset(names []string, force bool) (*Pedigree, []int, error) {
	sub := &Pedigree{byName: make(map[string]int, len(names))}
	indices := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := p.byName[name]
		if !ok {
			if force {
				continue
			}
			return nil, nil, errorf("xcf.Pedigree.Subset", KindFormat, "sample %q not present in the input (use --force-samples to skip it)", name)
		}
		sub.byName[name] = len(sub.Individuals)
		sub.Individuals = append(sub.Individuals, p.Individuals[i])
		indices = append(indices, i)
	}
	sub.buildPopIndex()
	return sub, indices, nil
}

// Populations returns every population name present, including the
// implicit "ALL".
func (p *Pedigree) Populations() []string {
	names := make([]string, 0, len(p.byPop))
	for name := range p.byPop {
		names = append(names, name)
	}
	return names
}

// Samples2Pop returns the sample indices belonging to pop ("ALL"
// always matches every sample).
func (p *Pedigree) Samples2Pop(pop string) []int { return p.byPop[pop] }

// Trio is a parent/offspring triplet resolved to sample indices; Father
// or Mother is -1 when that parent is not present in this Pedigree
// (in which case the triplet degrades to a duo for Mendel checking).
type Trio struct {
	Child, Father, Mother int
}

// Trios returns every child whose pedigree names at least one parent
// that is itself a sample in this Pedigree, in sample order.
func (p *Pedigree) Trios() []Trio {
	var trios []Trio
	for i, ind := range p.Individuals {
		fi, fok := -1, false
		if ind.Father != NA {
			fi, fok = p.IndexOf(ind.Father)
		}
		mi, mok := -1, false
		if ind.Mother != NA {
			mi, mok = p.IndexOf(ind.Mother)
		}
		if !fok {
			fi = -1
		}
		if !mok {
			mi = -1
		}
		if fi >= 0 || mi >= 0 {
			trios = append(trios, Trio{Child: i, Father: fi, Mother: mi})
		}
	}
	return trios
}
