package snapshot

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// documentSchema constrains a snapshot in the current layout.
const documentSchema = `
#User: {
	name?:       string
	external_id: int & >=0
}

#Player: {
	name:     string & !=""
	game_id?: string | null
	faction?: string
	user?:    #User | null
}

version: 1
tenant: {
	id:   int & >0
	name: string
}
export_id?: string
digest?:    string
players: [...#Player]
`

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid snapshot: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid snapshot: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// compiledSchema is the schema compiled once per process. cue values are
// not safe for concurrent use, so every check holds mu.
type compiledSchema struct {
	mu     sync.Mutex
	ctx    *cue.Context
	doc    cue.Value
	player cue.Value
}

var loadSchema = sync.OnceValues(func() (*compiledSchema, error) {
	ctx := cuecontext.New()
	doc := ctx.CompileString(documentSchema)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	player := doc.LookupPath(cue.ParsePath("#Player"))
	if err := player.Err(); err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	return &compiledSchema{ctx: ctx, doc: doc, player: player}, nil
})

func (s *compiledSchema) check(schema cue.Value, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := s.ctx.Encode(v)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode snapshot for validation: %w", err)
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range errors.Errors(err) {
			problems = append(problems, e.Error())
		}
		if len(problems) == 0 {
			problems = []string{err.Error()}
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Validate checks doc against the embedded CUE schema.
func Validate(doc *Document) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	return s.check(s.doc, doc)
}

// validatePlayer checks a single player against #Player.
func validatePlayer(p Player) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	return s.check(s.player, p)
}
