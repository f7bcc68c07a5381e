package internal

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Use case input/output DTOs

type InitWorkspaceOutput struct {
	Dir     string
	Created bool
}

type TrainModelInput struct {
	DataPath string
	Table    *Table             // used instead of DataPath when set
	Columns  []ColumnDescriptor // overrides the configured columns when set
	Force    bool
}

type TrainModelOutput struct {
	ModelPath  string
	Cached     bool
	Vocabulary int
	Dimension  int
}

type BuildCodebookInput struct {
	DataPath string
	Table    *Table             // used instead of DataPath when set
	Columns  []ColumnDescriptor // overrides the configured columns when set
	Trees    int                // 0 uses the configured value
	Force    bool
	Progress ProgressFunc
}

type GroupOutput struct {
	Type    string
	Columns []string
	Tokens  int
	Trees   int
}

type CodebookOutput struct {
	Dir       string
	Dimension int
	Groups    []GroupOutput

	// Codebook is the freshly built codebook. The caller owns it and must
	// Close it. Only BuildCodebook sets it.
	Codebook *Codebook
}

type EncodeInput struct {
	Tokens []string
}

type EncodedToken struct {
	Token      string
	Substitute string // vocabulary word used in place of an unseen token
	Vector     []float32
}

type EncodeOutput struct {
	Tokens []EncodedToken
}

type DecodeInput struct {
	Type    string
	Vectors [][]float32
}

type DecodeOutput struct {
	Tokens []string
}

type NormalizeInput struct {
	Source string
}

type NormalizeOutput struct {
	Dir   string
	Files []string
}

// Use cases

type UseCases struct {
	Init          *InitWorkspaceUseCase
	Train         *TrainModelUseCase
	BuildCodebook *BuildCodebookUseCase
	Status        *CodebookStatusUseCase
	Encode        *EncodeUseCase
	Decode        *DecodeUseCase
	Normalize     *NormalizeUseCase
}

func NewUseCases(resolver *WorkspaceResolver, log *zap.Logger) *UseCases {
	if log == nil {
		log = zap.NewNop()
	}
	return &UseCases{
		Init:          NewInitWorkspaceUseCase(resolver),
		Train:         NewTrainModelUseCase(resolver.Load, log),
		BuildCodebook: NewBuildCodebookUseCase(resolver.Load, log),
		Status:        NewCodebookStatusUseCase(resolver),
		Encode:        NewEncodeUseCase(resolver),
		Decode:        NewDecodeUseCase(resolver),
		Normalize:     NewNormalizeUseCase(resolver, log),
	}
}

// WorkspaceLoader returns the workspace a use case operates on together with
// its configuration.
type WorkspaceLoader func() (Workspace, *Config, error)

// trainingInputs picks the in-memory table and columns when given, otherwise
// the data file and the configured columns.
func trainingInputs(cfg *Config, dataPath string, table *Table, cols []ColumnDescriptor) (*Table, []ColumnDescriptor, error) {
	if cols == nil {
		parsed, err := ParseColumns(cfg.Columns)
		if err != nil {
			return nil, nil, err
		}
		cols = parsed
	}

	if table == nil {
		loaded, err := LoadTable(dataPath)
		if err != nil {
			return nil, nil, err
		}
		table = loaded
	}

	return table, cols, nil
}

func loadVocabulary(ws Workspace, cfg *Config) (*Vocabulary, error) {
	path := ModelPath(ws.ModelDir(), cfg.Embedding.ModelName, cfg.Embedding.Dimension)
	vocab, err := LoadVocabulary(path)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return vocab, nil
}

func loadCodebook(ws Workspace, cfg *Config) (*Codebook, error) {
	vocab, err := loadVocabulary(ws, cfg)
	if err != nil {
		return nil, err
	}

	cb, err := LoadCodebook(ws.CodebookDir(), vocab)
	if err != nil {
		return nil, fmt.Errorf("load codebook: %w", err)
	}
	return cb, nil
}

type InitWorkspaceUseCase struct {
	resolver *WorkspaceResolver
}

func NewInitWorkspaceUseCase(resolver *WorkspaceResolver) *InitWorkspaceUseCase {
	return &InitWorkspaceUseCase{resolver: resolver}
}

// Execute initializes a workspace in the working directory, never in a
// parent that happens to hold one.
func (uc *InitWorkspaceUseCase) Execute(ctx context.Context) (*InitWorkspaceOutput, error) {
	ws := uc.resolver.Here()
	created := !ws.Exists()

	if err := ws.Init(DefaultConfig()); err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	return &InitWorkspaceOutput{Dir: ws.Dir, Created: created}, nil
}

type TrainModelUseCase struct {
	load    WorkspaceLoader
	trainer *Trainer
}

func NewTrainModelUseCase(load WorkspaceLoader, log *zap.Logger) *TrainModelUseCase {
	return &TrainModelUseCase{
		load:    load,
		trainer: NewTrainer(log),
	}
}

func (uc *TrainModelUseCase) Execute(ctx context.Context, input TrainModelInput) (*TrainModelOutput, error) {
	ws, cfg, err := uc.load()
	if err != nil {
		return nil, err
	}

	table, cols, err := trainingInputs(cfg, input.DataPath, input.Table, input.Columns)
	if err != nil {
		return nil, err
	}

	opts := cfg.TrainOptions(ws.ModelDir())
	opts.ForceRetrain = opts.ForceRetrain || input.Force
	cached := !opts.ForceRetrain && fileExists(ModelPath(opts.Dir, opts.ModelName, opts.Dimension))

	path, err := uc.trainer.Train(ctx, table, cols, opts)
	if err != nil {
		return nil, err
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	return &TrainModelOutput{
		ModelPath:  path,
		Cached:     cached,
		Vocabulary: vocab.Len(),
		Dimension:  vocab.Dimension(),
	}, nil
}

type BuildCodebookUseCase struct {
	load    WorkspaceLoader
	trainer *Trainer
	log     *zap.Logger
}

func NewBuildCodebookUseCase(load WorkspaceLoader, log *zap.Logger) *BuildCodebookUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &BuildCodebookUseCase{
		load:    load,
		trainer: NewTrainer(log),
		log:     log,
	}
}

// Execute trains the model when it is not cached yet, then indexes every
// type group of the table and saves the codebook into the workspace.
func (uc *BuildCodebookUseCase) Execute(ctx context.Context, input BuildCodebookInput) (*CodebookOutput, error) {
	ws, cfg, err := uc.load()
	if err != nil {
		return nil, err
	}

	table, cols, err := trainingInputs(cfg, input.DataPath, input.Table, input.Columns)
	if err != nil {
		return nil, err
	}

	opts := cfg.TrainOptions(ws.ModelDir())
	opts.ForceRetrain = opts.ForceRetrain || input.Force

	path, err := uc.trainer.Train(ctx, table, cols, opts)
	if err != nil {
		return nil, err
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	trees := input.Trees
	if trees == 0 {
		trees = cfg.Index.Trees
	}

	opts := []BuilderOption{WithTrees(trees), WithBuilderLogger(uc.log)}
	if input.Progress != nil {
		opts = append(opts, WithProgress(input.Progress))
	}

	cb, err := NewIndexBuilder(opts...).Build(ctx, table, vocab, cols)
	if err != nil {
		return nil, fmt.Errorf("build codebook: %w", err)
	}

	if err := SaveCodebook(ws.CodebookDir(), cb); err != nil {
		cb.Close()
		return nil, fmt.Errorf("save codebook: %w", err)
	}

	out := describeCodebook(ws.CodebookDir(), cb, GroupColumns(cols))
	out.Codebook = cb
	return out, nil
}

func describeCodebook(dir string, cb *Codebook, groups []TypeGroup) *CodebookOutput {
	columns := make(map[FieldType][]string, len(groups))
	for _, g := range groups {
		columns[g.Type] = g.Columns
	}

	out := &CodebookOutput{Dir: dir, Dimension: cb.Dimension()}
	for _, t := range cb.Types() {
		idx := cb.groups[t]
		out.Groups = append(out.Groups, GroupOutput{
			Type:    string(t),
			Columns: columns[t],
			Tokens:  idx.Len(),
			Trees:   idx.Trees(),
		})
	}
	return out
}

type CodebookStatusUseCase struct {
	resolver *WorkspaceResolver
}

func NewCodebookStatusUseCase(resolver *WorkspaceResolver) *CodebookStatusUseCase {
	return &CodebookStatusUseCase{resolver: resolver}
}

func (uc *CodebookStatusUseCase) Execute(ctx context.Context) (*CodebookOutput, error) {
	ws, cfg, err := uc.resolver.Load()
	if err != nil {
		return nil, err
	}

	cb, err := LoadCodebook(ws.CodebookDir(), nil)
	if err != nil {
		return nil, fmt.Errorf("load codebook: %w", err)
	}
	defer cb.Close()

	cols, err := ParseColumns(cfg.Columns)
	if err != nil {
		return nil, err
	}

	return describeCodebook(ws.CodebookDir(), cb, GroupColumns(cols)), nil
}

type EncodeUseCase struct {
	resolver *WorkspaceResolver
}

func NewEncodeUseCase(resolver *WorkspaceResolver) *EncodeUseCase {
	return &EncodeUseCase{resolver: resolver}
}

func (uc *EncodeUseCase) Execute(ctx context.Context, input EncodeInput) (*EncodeOutput, error) {
	ws, cfg, err := uc.resolver.Load()
	if err != nil {
		return nil, err
	}

	vocab, err := loadVocabulary(ws, cfg)
	if err != nil {
		return nil, err
	}

	out := &EncodeOutput{Tokens: make([]EncodedToken, 0, len(input.Tokens))}
	for _, s := range input.Tokens {
		tok := Token(s)

		sub, err := vocab.Resolve(tok)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", s, err)
		}

		vec, err := vocab.Vector(sub, true)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", s, err)
		}

		enc := EncodedToken{Token: s, Vector: vec}
		if sub != tok {
			enc.Substitute = sub.String()
		}
		out.Tokens = append(out.Tokens, enc)
	}

	return out, nil
}

type DecodeUseCase struct {
	resolver *WorkspaceResolver
}

func NewDecodeUseCase(resolver *WorkspaceResolver) *DecodeUseCase {
	return &DecodeUseCase{resolver: resolver}
}

func (uc *DecodeUseCase) Execute(ctx context.Context, input DecodeInput) (*DecodeOutput, error) {
	ws, cfg, err := uc.resolver.Load()
	if err != nil {
		return nil, err
	}

	cb, err := loadCodebook(ws, cfg)
	if err != nil {
		return nil, err
	}
	defer cb.Close()

	tokens, err := cb.DecodeBatch(ctx, FieldType(input.Type), input.Vectors)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := &DecodeOutput{Tokens: make([]string, len(tokens))}
	for i, t := range tokens {
		out.Tokens[i] = t.String()
	}
	return out, nil
}

type NormalizeUseCase struct {
	resolver *WorkspaceResolver
	log      *zap.Logger
}

func NewNormalizeUseCase(resolver *WorkspaceResolver, log *zap.Logger) *NormalizeUseCase {
	return &NormalizeUseCase{resolver: resolver, log: log}
}

func (uc *NormalizeUseCase) Execute(ctx context.Context, input NormalizeInput) (*NormalizeOutput, error) {
	ws, cfg, err := uc.resolver.Load()
	if err != nil {
		return nil, err
	}

	ignore, err := NewIgnoreMatcher(ws.IgnorePath())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", IgnoreFilename, err)
	}

	n, err := NewOSNormalizer(input.Source, ws.CanonicalDir(),
		WithIncludes(cfg.Normalize.Includes...),
		WithIgnore(ignore),
		WithNormalizerLogger(uc.log),
	)
	if err != nil {
		return nil, err
	}

	files, err := n.Normalize(ctx)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	return &NormalizeOutput{Dir: ws.CanonicalDir(), Files: files}, nil
}
