package chat

import (
	"context"
	"log"
	"sort"

	"github.com/crewlink/crewchat/internal/types"
	"golang.org/x/sync/errgroup"
)

type projectLister interface {
	OwnedProjects(ctx context.Context) ([]types.Project, error)
	WorkingProjects(ctx context.Context) ([]types.Project, error)
}

// Directory materializes the set of conversation rooms from the projects
// the user owns and the projects they work on. Rooms are recomputed on
// every call; nothing is cached.
type Directory struct {
	api projectLister
	log *log.Logger
}

func NewDirectory(api projectLister, logger *log.Logger) *Directory {
	return &Directory{api: api, log: logger}
}

// ListRooms fetches both project lists concurrently and merges them into
// a unique-by-id list, newest project first. Either fetch failing yields
// an empty directory rather than an error: a degraded room list beats a
// hard failure on the chat landing surface.
func (d *Directory) ListRooms(ctx context.Context) []types.Room {
	var owned, working []types.Project

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = d.api.OwnedProjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		working, err = d.api.WorkingProjects(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		d.log.Println("list rooms:", err)
		return []types.Room{}
	}

	// concatenation order is owned then working; a project present in
	// both keeps the mapping applied last
	byId := make(map[string]types.Room)
	order := make([]string, 0, len(owned)+len(working))

	for _, p := range owned {
		if _, seen := byId[p.Id]; !seen {
			order = append(order, p.Id)
		}
		byId[p.Id] = ownedRoom(p)
	}
	for _, p := range working {
		if _, seen := byId[p.Id]; !seen {
			order = append(order, p.Id)
		}
		byId[p.Id] = workingRoom(p)
	}

	rooms := make([]types.Room, 0, len(order))
	for _, id := range order {
		rooms = append(rooms, byId[id])
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	return rooms
}

func ownedRoom(p types.Project) types.Room {
	return types.Room{
		Id:        p.Id,
		Name:      p.Name,
		IsCreator: true,
		CreatedAt: p.CreatedAt,
	}
}

func workingRoom(p types.Project) types.Room {
	name := p.ProjectName
	if name == "" {
		name = p.Name
	}

	return types.Room{
		Id:          p.Id,
		Name:        name,
		IsCreator:   false,
		MyRole:      p.MyRole,
		CreatorName: p.CreatorName,
		CreatedAt:   p.CreatedAt,
	}
}
