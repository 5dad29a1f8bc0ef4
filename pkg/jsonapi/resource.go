package jsonapi

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr adds an attribute to the resource.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.resource.Attributes[key] = value
	return b
}

// Attrs copies every entry of attrs into the resource attributes.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		b.resource.Attributes[k] = v
	}
	return b
}

// Self sets the resource self link.
func (b *ResourceBuilder) Self(url string) *ResourceBuilder {
	b.resource.Links = &Links{Self: url}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
