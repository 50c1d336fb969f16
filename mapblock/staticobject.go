package mapblock

import "github.com/grailbio/mapeditr/spatial"

// luaEntityObjectType is the static-object type tag used for every
// LuaEntity, dropped items among them.
const luaEntityObjectType = 7

// luaEntityPayloadSubVersion is the only supported sub-version of a
// LuaEntity's serialized payload.
const luaEntityPayloadSubVersion = 1

// StaticObject is one entry of a mapblock's static object list: an
// opaque, type-tagged blob anchored at a fixed-point node position.
type StaticObject struct {
	Type uint8
	// FPos is a fixed-point node position: 10000 units = 1 node.
	FPos spatial.Vec3
	Data []byte
}

// LuaEntityData is the decoded payload of a StaticObject whose Type is
// the LuaEntity tag (7): a name plus an opaque data blob (for the
// built-in dropped-item entity, a textual Lua table).
type LuaEntityData struct {
	Name []byte
	Data []byte
}

// DecodeLuaEntity parses obj.Data as a LuaEntity payload. It fails with
// InvalidFeature if obj is not a LuaEntity, or InvalidSubVersion if the
// payload's own sub-version is unsupported.
func DecodeLuaEntity(obj *StaticObject) (*LuaEntityData, error) {
	if obj.Type != luaEntityObjectType {
		return nil, newErr(InvalidFeature, "static object type %d is not a LuaEntity", obj.Type)
	}
	r := newReader(obj.Data)
	sv, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if sv != luaEntityPayloadSubVersion {
		return nil, newErr(InvalidSubVersion, "LuaEntity payload sub-version %d", sv)
	}
	name, err := r.readString16()
	if err != nil {
		return nil, err
	}
	data, err := r.readString32()
	if err != nil {
		return nil, err
	}
	return &LuaEntityData{Name: name, Data: data}, nil
}

func decodeStaticObjectList(r *reader) ([]StaticObject, error) {
	subVersion, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if subVersion != 0 {
		return nil, newErr(InvalidSubVersion, "static object list sub-version %d", subVersion)
	}
	count, err := r.readU16()
	if err != nil {
		return nil, err
	}
	objs := make([]StaticObject, 0, capAlloc(int(count), 64))
	for i := 0; i < int(count); i++ {
		objType, err := r.readU8()
		if err != nil {
			return nil, err
		}
		x, err := r.readI32()
		if err != nil {
			return nil, err
		}
		y, err := r.readI32()
		if err != nil {
			return nil, err
		}
		z, err := r.readI32()
		if err != nil {
			return nil, err
		}
		data, err := r.readString16()
		if err != nil {
			return nil, err
		}
		objs = append(objs, StaticObject{
			Type: objType,
			FPos: spatial.New(x, y, z),
			Data: data,
		})
	}
	return objs, nil
}

func encodeStaticObjectList(objs []StaticObject, w *writer) {
	w.writeU8(0) // sub-version
	w.writeU16(uint16(len(objs)))
	for _, o := range objs {
		w.writeU8(o.Type)
		w.writeI32(o.FPos.X)
		w.writeI32(o.FPos.Y)
		w.writeI32(o.FPos.Z)
		w.writeString16(o.Data)
	}
}
