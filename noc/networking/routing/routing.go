// Package routing computes the output direction that flits follow through a
// 2D mesh.
package routing

import "fmt"

// A Coord is the position of a node in a 2D mesh.
type Coord struct {
	X, Y int
}

// String returns the coordinate in the form of (x, y).
func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// A Direction identifies one of the physical ports of a router.
type Direction int

// The ports of a router. Local is the port that connects to the node that the
// router serves.
const (
	Local Direction = iota
	East
	West
	North
	South

	NumDirections
)

// String returns the name of the direction.
func (d Direction) String() string {
	switch d {
	case Local:
		return "Local"
	case East:
		return "East"
	case West:
		return "West"
	case North:
		return "North"
	case South:
		return "South"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the direction that faces d on the neighbor router.
func (d Direction) Opposite() Direction {
	switch d {
	case East:
		return West
	case West:
		return East
	case North:
		return South
	case South:
		return North
	default:
		panic("local port has no opposite")
	}
}

// Route computes the direction a head flit must take at the router located at
// cur to reach dst, following dimension-order (XY) routing.
//
// The X dimension is always resolved before the Y dimension. The ordering is
// what guarantees that no cyclic channel dependency can form across the mesh,
// so it must be applied identically at every node.
func Route(cur, dst Coord) Direction {
	switch {
	case dst.X > cur.X:
		return East
	case dst.X < cur.X:
		return West
	case dst.Y > cur.Y:
		return North
	case dst.Y < cur.Y:
		return South
	default:
		return Local
	}
}

// A Table finds the output direction according to the final destination of a
// packet.
type Table interface {
	FindDirection(dst Coord) Direction
}

// NewXYTable creates a Table that applies dimension-order routing at the node
// located at cur.
func NewXYTable(cur Coord) Table {
	return xyTable{cur: cur}
}

type xyTable struct {
	cur Coord
}

func (t xyTable) FindDirection(dst Coord) Direction {
	return Route(t.cur, dst)
}
