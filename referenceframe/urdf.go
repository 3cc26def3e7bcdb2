package referenceframe

import (
	"encoding/xml"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	spatial "go.viam.com/taskik/spatialmath"
)

// Joint types supported by the URDF parser.
const (
	RevoluteJoint   = "revolute"
	ContinuousJoint = "continuous"
	PrismaticJoint  = "prismatic"
	FixedJoint      = "fixed"
)

// URDFConfig represents the fields of a Universal Robot Description Format (URDF) file needed to build a chain.
type URDFConfig struct {
	XMLName xml.Name    `xml:"robot"`
	Name    string      `xml:"name,attr"`
	Links   []URDFLink  `xml:"link"`
	Joints  []URDFJoint `xml:"joint"`
}

// URDFLink is a struct which details the XML used in a URDF link element.
type URDFLink struct {
	XMLName xml.Name `xml:"link"`
	Name    string   `xml:"name,attr"`
}

// URDFLimit is the limit element of a joint. Translation limits are in meters, revolute limits are in radians.
type URDFLimit struct {
	XMLName xml.Name `xml:"limit"`
	Lower   float64  `xml:"lower,attr"`
	Upper   float64  `xml:"upper,attr"`
}

// URDFFrame names the link on one side of a joint.
type URDFFrame struct {
	Link string `xml:"link,attr"`
}

// URDFPose is the origin element of a joint.
type URDFPose struct {
	XMLName xml.Name `xml:"origin"`
	XYZ     string   `xml:"xyz,attr"`
	RPY     string   `xml:"rpy,attr"`
}

// URDFAxis is the axis element of a joint.
type URDFAxis struct {
	XMLName xml.Name `xml:"axis"`
	XYZ     string   `xml:"xyz,attr"`
}

// URDFJoint is a struct which details the XML used in a URDF joint element.
type URDFJoint struct {
	XMLName xml.Name   `xml:"joint"`
	Name    string     `xml:"name,attr"`
	Type    string     `xml:"type,attr"`
	Parent  URDFFrame  `xml:"parent"`
	Child   URDFFrame  `xml:"child"`
	Origin  *URDFPose  `xml:"origin,omitempty"`
	Axis    *URDFAxis  `xml:"axis,omitempty"`
	Limit   *URDFLimit `xml:"limit,omitempty"`
}

// ParseURDFFile reads a URDF file and builds the chain from root to tip.
func ParseURDFFile(filename, root, tip string) (*SimpleModel, error) {
	//nolint:gosec
	xmlData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read URDF file")
	}
	return ParseURDF(xmlData, root, tip)
}

// ParseURDF builds the serial chain from the root link to the tip link of a URDF robot description.
// Every joint contributes a static frame for its origin followed by a frame for its motion; fixed joints
// contribute the static frame only.
func ParseURDF(xmlData []byte, root, tip string) (*SimpleModel, error) {
	// empty data probably means that the read URDF has no actionable information
	if len(xmlData) == 0 {
		return nil, ErrNoModelInformation
	}
	urdf := &URDFConfig{}
	if err := xml.Unmarshal(xmlData, urdf); err != nil {
		return nil, errors.Wrap(err, "failed to parse robot description")
	}

	links := map[string]bool{}
	for _, l := range urdf.Links {
		links[l.Name] = true
	}
	jointByChild := map[string]URDFJoint{}
	for _, j := range urdf.Joints {
		links[j.Parent.Link] = true
		links[j.Child.Link] = true
		jointByChild[j.Child.Link] = j
	}
	for _, name := range []string{root, tip} {
		if !links[name] {
			return nil, NewUnknownLinkError(name)
		}
	}

	// walk from the tip up to the root, then reverse
	var chain []URDFJoint
	for link := tip; link != root; {
		j, ok := jointByChild[link]
		if !ok || len(chain) > len(urdf.Joints) {
			return nil, NewBrokenChainError(root, tip)
		}
		chain = append(chain, j)
		link = j.Parent.Link
	}
	for i, k := 0, len(chain)-1; i < k; i, k = i+1, k-1 {
		chain[i], chain[k] = chain[k], chain[i]
	}

	frames := make([]Frame, 0, 2*len(chain))
	for _, j := range chain {
		origin, err := j.Origin.Parse()
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", j.Name)
		}
		static, err := NewStaticFrame(j.Name+"_origin", origin)
		if err != nil {
			return nil, err
		}
		frames = append(frames, static)

		if j.Type == FixedJoint {
			continue
		}
		axis, err := j.Axis.Parse()
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", j.Name)
		}
		var motion Frame
		switch j.Type {
		case RevoluteJoint, ContinuousJoint:
			motion, err = NewRotationalFrame(j.Name, *spatial.R3ToR4(axis), j.limit())
		case PrismaticJoint:
			motion, err = NewTranslationalFrame(j.Name, axis, j.limit())
		default:
			return nil, NewUnsupportedJointTypeError(j.Type)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", j.Name)
		}
		frames = append(frames, motion)
	}

	name := urdf.Name
	if name == "" {
		name = tip
	}
	return NewSimpleModel(name, frames)
}

func (j URDFJoint) limit() Limit {
	if j.Type == ContinuousJoint || j.Limit == nil {
		return Limit{Min: math.Inf(-1), Max: math.Inf(1)}
	}
	return Limit{Min: j.Limit.Lower, Max: j.Limit.Upper}
}

// Parse converts an origin element to a pose. A missing origin is the identity.
func (p *URDFPose) Parse() (spatial.Pose, error) {
	if p == nil {
		return spatial.NewZeroPose(), nil
	}
	xyz, err := parseVector3(p.XYZ)
	if err != nil {
		return nil, errors.Wrap(err, "origin xyz")
	}
	rpy, err := parseVector3(p.RPY)
	if err != nil {
		return nil, errors.Wrap(err, "origin rpy")
	}
	return spatial.NewPoseFromXYZRPY(xyz.X, xyz.Y, xyz.Z, rpy.X, rpy.Y, rpy.Z), nil
}

// Parse converts an axis element to a unit vector. A missing axis defaults to x.
func (a *URDFAxis) Parse() (r3.Vector, error) {
	if a == nil {
		return r3.Vector{X: 1}, nil
	}
	v, err := parseVector3(a.XYZ)
	if err != nil {
		return r3.Vector{}, errors.Wrap(err, "axis xyz")
	}
	if v.Norm() == 0 {
		return r3.Vector{}, errors.New("axis must not be the zero vector")
	}
	return v.Normalize(), nil
}

// parseVector3 reads three space delimited floats. An empty string is the zero vector.
func parseVector3(s string) (r3.Vector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return r3.Vector{}, nil
	}
	if len(fields) != 3 {
		return r3.Vector{}, errors.Errorf("expected 3 values, got %q", s)
	}
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r3.Vector{}, err
		}
		out[i] = v
	}
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}, nil
}
