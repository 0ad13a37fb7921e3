package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

type noteInput struct {
	Title      string
	Content    string
	LabelIDs   *[]graphql.ID
	StartAt    *graphql.Time
	DeadlineAt *graphql.Time
}

func (in noteInput) draft() store.NoteDraft {
	return store.NoteDraft{
		Title:      in.Title,
		Content:    in.Content,
		LabelIDs:   optIDStrings(in.LabelIDs),
		StartAt:    fromTimePtr(in.StartAt),
		DeadlineAt: fromTimePtr(in.DeadlineAt),
	}
}

type noteFilter struct {
	LabelIDs *[]graphql.ID
	GroupID  *graphql.ID
	Resolved *bool
	Search   *string
}

type noteResolver struct {
	root *Resolver
	n    *store.Note
}

func (r *noteResolver) ID() graphql.ID { return graphql.ID(r.n.ID) }
func (r *noteResolver) Title() string { return r.n.Title }
func (r *noteResolver) Content() string { return r.n.Content }
func (r *noteResolver) StartAt() *graphql.Time { return toTimePtr(r.n.StartAt) }
func (r *noteResolver) DeadlineAt() *graphql.Time { return toTimePtr(r.n.DeadlineAt) }
func (r *noteResolver) ResolvedAt() *graphql.Time { return toTimePtr(r.n.ResolvedAt) }
func (r *noteResolver) CreatedAt() graphql.Time { return toTime(r.n.CreatedAt) }
func (r *noteResolver) UpdatedAt() graphql.Time { return toTime(r.n.UpdatedAt) }

func (r *noteResolver) Creator(ctx context.Context) (*userResolver, error) {
	return r.root.loadUser(ctx, r.n.CreatorID)
}

func (r *noteResolver) Labels(ctx context.Context) ([]*labelResolver, error) {
	labels, err := r.root.db.LabelsForNote(ctx, r.n.ID)
	if err != nil {
		return nil, r.root.fail(err)
	}
	return labelResolvers(labels), nil
}

// Groups lists the groups the note is shared with. Readers other than the
// creator only see the groups they belong to.
func (r *noteResolver) Groups(ctx context.Context) ([]*groupResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.root.fail(err)
	}
	groups, err := r.root.db.GroupsForNote(ctx, r.n.ID)
	if err != nil {
		return nil, r.root.fail(err)
	}
	if r.n.CreatorID == uid {
		return r.root.groupResolvers(groups), nil
	}

	mine, err := r.root.db.ListGroupsForUser(ctx, uid)
	if err != nil {
		return nil, r.root.fail(err)
	}
	member := make(map[string]bool, len(mine))
	for _, g := range mine {
		member[g.ID] = true
	}
	shared := groups[:0]
	for _, g := range groups {
		if member[g.ID] {
			shared = append(shared, g)
		}
	}
	return r.root.groupResolvers(shared), nil
}

// readableNote loads a note the caller may read.
func (r *Resolver) readableNote(ctx context.Context, uid, id string) (*store.Note, error) {
	n, err := r.db.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.Missing("note", id)
	}
	if n.CreatorID == uid {
		return n, nil
	}
	ok, err := r.db.CanReadNote(ctx, id, uid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("note %s is not shared with you", id)
	}
	return n, nil
}

// ownNote loads a note the caller created.
func (r *Resolver) ownNote(ctx context.Context, uid, id string) (*store.Note, error) {
	n, err := r.readableNote(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if n.CreatorID != uid {
		return nil, apperr.Forbidden("only the creator can change note %s", id)
	}
	return n, nil
}

func (r *Resolver) validateNote(ctx context.Context, uid string, in noteInput) error {
	if err := engine.ValidateName("title", in.Title); err != nil {
		return err
	}
	if in.StartAt != nil && in.DeadlineAt != nil && in.DeadlineAt.Time.Before(in.StartAt.Time) {
		return apperr.BadInput("deadline must not be before start")
	}
	return r.eng.CheckLabels(ctx, uid, optIDStrings(in.LabelIDs))
}

func (r *Resolver) Note(ctx context.Context, args struct{ ID graphql.ID }) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	n, err := r.readableNote(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	return &noteResolver{root: r, n: n}, nil
}

func (r *Resolver) Notes(ctx context.Context, args struct{ Filter *noteFilter }) ([]*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	var f store.NoteFilter
	if args.Filter != nil {
		f.LabelIDs = optIDStrings(args.Filter.LabelIDs)
		f.Resolved = args.Filter.Resolved
		f.Search = deref(args.Filter.Search)
		if args.Filter.GroupID != nil {
			f.GroupID = string(*args.Filter.GroupID)
		}
	}
	notes, err := r.db.ListNotes(ctx, uid, f)
	if err != nil {
		return nil, r.fail(err)
	}
	out := make([]*noteResolver, len(notes))
	for i := range notes {
		out[i] = &noteResolver{root: r, n: &notes[i]}
	}
	return out, nil
}

func (r *Resolver) CreateNote(ctx context.Context, args struct{ Input noteInput }) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.validateNote(ctx, uid, args.Input); err != nil {
		return nil, r.fail(err)
	}
	n, err := r.db.CreateNote(ctx, uid, args.Input.draft())
	if err != nil {
		return nil, r.fail(err)
	}
	return &noteResolver{root: r, n: n}, nil
}

func (r *Resolver) UpdateNote(ctx context.Context, args struct {
	ID    graphql.ID
	Input noteInput
}) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	id := string(args.ID)
	if _, err := r.ownNote(ctx, uid, id); err != nil {
		return nil, r.fail(err)
	}
	if err := r.validateNote(ctx, uid, args.Input); err != nil {
		return nil, r.fail(err)
	}
	n, err := r.db.UpdateNote(ctx, id, args.Input.draft())
	if err != nil {
		return nil, r.storeFail(err, "note", id)
	}
	return &noteResolver{root: r, n: n}, nil
}

func (r *Resolver) ResolveNote(ctx context.Context, args struct {
	ID       graphql.ID
	Resolved bool
}) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	id := string(args.ID)
	current, err := r.ownNote(ctx, uid, id)
	if err != nil {
		return nil, r.fail(err)
	}

	var at *int64
	if args.Resolved {
		// Resolving twice keeps the first timestamp.
		at = current.ResolvedAt
		if at == nil {
			now := r.eng.Now().UnixMilli()
			at = &now
		}
	}
	n, err := r.db.SetNoteResolved(ctx, id, at)
	if err != nil {
		return nil, r.storeFail(err, "note", id)
	}
	return &noteResolver{root: r, n: n}, nil
}

func (r *Resolver) DeleteNote(ctx context.Context, args struct{ ID graphql.ID }) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	n, err := r.ownNote(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.db.DeleteNote(ctx, n.ID); err != nil {
		return nil, r.storeFail(err, "note", n.ID)
	}
	return &noteResolver{root: r, n: n}, nil
}

type shareArgs struct {
	NoteID  graphql.ID
	GroupID graphql.ID
}

func (r *Resolver) ShareNote(ctx context.Context, args shareArgs) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	n, err := r.ownNote(ctx, uid, string(args.NoteID))
	if err != nil {
		return nil, r.fail(err)
	}
	groupID := string(args.GroupID)
	if _, _, err := r.memberGroup(ctx, uid, groupID); err != nil {
		return nil, r.fail(err)
	}
	if err := r.db.ShareNote(ctx, n.ID, groupID); err != nil {
		if apperr.Is(engine.StoreError(err, "share", ""), apperr.Conflict) {
			return nil, r.fail(apperr.New(apperr.Conflict, "note %s is already shared with group %s", n.ID, groupID))
		}
		return nil, r.fail(err)
	}
	return &noteResolver{root: r, n: n}, nil
}

func (r *Resolver) UnshareNote(ctx context.Context, args shareArgs) (*noteResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	n, err := r.ownNote(ctx, uid, string(args.NoteID))
	if err != nil {
		return nil, r.fail(err)
	}
	groupID := string(args.GroupID)
	if err := r.db.UnshareNote(ctx, n.ID, groupID); err != nil {
		return nil, r.storeFail(err, "share of note "+n.ID+" with group", groupID)
	}
	return &noteResolver{root: r, n: n}, nil
}
