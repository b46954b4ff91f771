package planner

import (
	"context"

	"github.com/rcowham/tfvcimport/mstate"
	"github.com/rcowham/tfvcimport/topology"
)

// applyRefMovingOps implements §4.F step 1: Delete removes a branch's
// head and ref; Rename moves the existing head under the new identity
// key, and physically moves the underlying ref if its sanitized name
// changed (the common case, a trunk rename, keeps the same ref name).
func (p *Planner) applyRefMovingOps(ctx context.Context, state *mstate.MappingState) error {
	for _, op := range state.Ops {
		switch o := op.(type) {
		case topology.DeleteOp:
			head, ok := p.heads[o.Branch]
			if !ok {
				continue
			}
			if err := p.store.RemoveRef(ctx, head.Ref); err != nil {
				return err
			}
			delete(p.heads, o.Branch)
		case topology.RenameOp:
			head, ok := p.heads[o.OldIdentity]
			if !ok {
				continue
			}
			delete(p.heads, o.OldIdentity)
			newRef := "refs/heads/" + RefNameFor(o.NewIdentity.Path, state.Trunk.Path, p.trunkRefName)
			if newRef != head.Ref {
				if err := p.store.CreateOrMoveRef(ctx, newRef, head.Commit); err != nil {
					return err
				}
				if err := p.store.RemoveRef(ctx, head.Ref); err != nil {
					return err
				}
				head.Ref = newRef
			}
			p.heads[o.NewIdentity] = head
		}
	}
	return nil
}
