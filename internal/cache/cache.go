package cache

import (
	"sort"
	"strings"
	"sync"
)

// Cache holds transcripts and genes loaded from an annotation source.
// It is filled once by a loader and read afterwards; reads are safe for
// concurrent use.
type Cache struct {
	// transcripts stores transcripts indexed by chromosome
	transcripts map[string][]*Transcript
	byID        map[string]*Transcript
	genes       map[string]*Gene
	geneNames   map[string]string // upper-case symbol -> gene ID

	mu    sync.Mutex
	trees map[string]*IntervalTree
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		transcripts: make(map[string][]*Transcript),
		byID:        make(map[string]*Transcript),
		genes:       make(map[string]*Gene),
		geneNames:   make(map[string]string),
	}
}

// AddTranscript adds a transcript to the cache and attaches it to its gene,
// creating the gene from the transcript's fields if needed.
func (c *Cache) AddTranscript(t *Transcript) {
	c.transcripts[t.Chrom] = append(c.transcripts[t.Chrom], t)
	c.byID[t.ID] = t

	g, ok := c.genes[t.GeneID]
	if !ok {
		g = &Gene{
			ID:     t.GeneID,
			Name:   t.GeneName,
			Chrom:  t.Chrom,
			Start:  t.Start,
			End:    t.End,
			Strand: t.Strand,
		}
		c.AddGene(g)
	}
	g.Transcripts = append(g.Transcripts, t)
	g.Start = min(g.Start, t.Start)
	g.End = max(g.End, t.End)

	c.mu.Lock()
	delete(c.trees, t.Chrom)
	c.mu.Unlock()
}

// AddGene registers a gene. Transcripts added later attach to it by ID.
func (c *Cache) AddGene(g *Gene) {
	if existing, ok := c.genes[g.ID]; ok {
		g.Transcripts = append(g.Transcripts, existing.Transcripts...)
	}
	c.genes[g.ID] = g
	if g.Name != "" {
		c.geneNames[strings.ToUpper(g.Name)] = g.ID
	}
}

// GetTranscript returns a specific transcript by ID, or nil if not found.
// The version suffix is ignored.
func (c *Cache) GetTranscript(id string) *Transcript {
	return c.byID[stripVersion(id)]
}

// GetGene returns a gene by Ensembl ID or symbol, or nil if not found.
func (c *Cache) GetGene(idOrName string) *Gene {
	if g, ok := c.genes[stripVersion(idOrName)]; ok {
		return g
	}
	if id, ok := c.geneNames[strings.ToUpper(idOrName)]; ok {
		return c.genes[id]
	}
	return nil
}

// Genes returns all genes ordered by ID.
func (c *Cache) Genes() []*Gene {
	genes := make([]*Gene, 0, len(c.genes))
	for _, g := range c.genes {
		genes = append(genes, g)
	}
	sort.Slice(genes, func(i, j int) bool { return genes[i].ID < genes[j].ID })
	return genes
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	return len(c.byID)
}

// GeneCount returns the number of genes in the cache.
func (c *Cache) GeneCount() int {
	return len(c.genes)
}

// Chromosomes returns a sorted list of chromosomes in the cache.
func (c *Cache) Chromosomes() []string {
	chroms := make([]string, 0, len(c.transcripts))
	for chrom := range c.transcripts {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// FindTranscriptsByChrom returns all transcripts for a chromosome.
func (c *Cache) FindTranscriptsByChrom(chrom string) []*Transcript {
	return c.transcripts[normalizeChrom(chrom)]
}

// FindTranscripts returns all transcripts that overlap a given genomic position.
func (c *Cache) FindTranscripts(chrom string, pos int64) []*Transcript {
	return c.FindTranscriptsInRegion(chrom, pos, pos)
}

// FindTranscriptsInRegion returns all transcripts intersecting [start, end].
func (c *Cache) FindTranscriptsInRegion(chrom string, start, end int64) []*Transcript {
	tree := c.tree(normalizeChrom(chrom))
	if tree == nil {
		return nil
	}
	return tree.FindOverlapsRange(start, end)
}

// tree returns the interval tree for chrom, building it on first use.
func (c *Cache) tree(chrom string) *IntervalTree {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tree, ok := c.trees[chrom]; ok {
		return tree
	}
	transcripts, ok := c.transcripts[chrom]
	if !ok {
		return nil
	}
	if c.trees == nil {
		c.trees = make(map[string]*IntervalTree)
	}
	tree := BuildIntervalTree(transcripts)
	c.trees[chrom] = tree
	return tree
}
