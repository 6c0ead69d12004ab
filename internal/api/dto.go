package api

import (
	"time"

	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

// JSON wire shapes use camelCase field names and RFC-3339 UTC
// timestamps, with null-valued optional fields omitted — see
// sandboxmodel for the domain types these project to/from.

type imageAuthDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type imageDTO struct {
	URI  string        `json:"uri"`
	Auth *imageAuthDTO `json:"auth,omitempty"`
}

type volumeMountDTO struct {
	HostPath      string `json:"hostPath"`
	ContainerPath string `json:"containerPath"`
	ReadOnly      bool   `json:"readOnly,omitempty"`
}

type statusDTO struct {
	State            string `json:"state"`
	Reason           string `json:"reason,omitempty"`
	Message          string `json:"message,omitempty"`
	LastTransitionAt string `json:"lastTransitionAt,omitempty"`
}

type sandboxDTO struct {
	ID             string            `json:"id"`
	Image          imageDTO          `json:"image"`
	Entrypoint     []string          `json:"entrypoint,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	ResourceLimits map[string]string `json:"resourceLimits,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	VolumeMounts   []volumeMountDTO  `json:"volumeMounts,omitempty"`
	Extensions     map[string]string `json:"extensions,omitempty"`
	TimeoutSeconds int               `json:"timeoutSeconds,omitempty"`
	CreatedAt      string            `json:"createdAt,omitempty"`
	ExpiresAt      string            `json:"expiresAt,omitempty"`
	Status         statusDTO         `json:"status"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toSandboxDTO(sbx *sandboxmodel.Sandbox) sandboxDTO {
	dto := sandboxDTO{
		ID:             sbx.ID,
		Image:          imageDTO{URI: sbx.Image.URI},
		Entrypoint:     sbx.Entrypoint,
		Env:            sbx.Env,
		ResourceLimits: sbx.ResourceLimits,
		Metadata:       sbx.Metadata,
		Extensions:     sbx.Extensions,
		TimeoutSeconds: sbx.TimeoutSeconds,
		CreatedAt:      formatTime(sbx.CreatedAt),
		ExpiresAt:      formatTime(sbx.ExpiresAt),
		Status: statusDTO{
			State:            string(sbx.Status.State),
			Reason:           sbx.Status.Reason,
			Message:          sbx.Status.Message,
			LastTransitionAt: formatTime(sbx.Status.LastTransitionAt),
		},
	}
	if sbx.Image.Auth != nil {
		dto.Image.Auth = &imageAuthDTO{Username: sbx.Image.Auth.Username, Password: sbx.Image.Auth.Password}
	}
	for _, m := range sbx.VolumeMounts {
		dto.VolumeMounts = append(dto.VolumeMounts, volumeMountDTO{
			HostPath:      m.HostPath,
			ContainerPath: m.ContainerPath,
			ReadOnly:      m.ReadOnly,
		})
	}
	return dto
}

// createRequestDTO is the request body for create_sandbox. Env uses
// *string rather than string so a JSON null can be distinguished from
// an empty string: null entries are dropped, empty strings preserved.
type createRequestDTO struct {
	Image          imageDTO           `json:"image"`
	Entrypoint     []string           `json:"entrypoint"`
	Env            map[string]*string `json:"env"`
	ResourceLimits map[string]string  `json:"resourceLimits"`
	Metadata       map[string]string  `json:"metadata"`
	VolumeMounts   []volumeMountDTO   `json:"volumeMounts"`
	Extensions     map[string]string  `json:"extensions"`
	TimeoutSeconds int                `json:"timeoutSeconds"`
}

func (dto createRequestDTO) toCreateRequest() sandboxmodel.CreateRequest {
	req := sandboxmodel.CreateRequest{
		Image:          sandboxmodel.ImageSpec{URI: dto.Image.URI},
		Entrypoint:     dto.Entrypoint,
		ResourceLimits: dto.ResourceLimits,
		Metadata:       dto.Metadata,
		Extensions:     dto.Extensions,
		TimeoutSeconds: dto.TimeoutSeconds,
	}
	if dto.Image.Auth != nil {
		req.Image.Auth = &sandboxmodel.ImageAuth{Username: dto.Image.Auth.Username, Password: dto.Image.Auth.Password}
	}
	if len(dto.Env) > 0 {
		req.Env = make(map[string]string, len(dto.Env))
		for k, v := range dto.Env {
			if v == nil {
				continue
			}
			req.Env[k] = *v
		}
	}
	for _, m := range dto.VolumeMounts {
		req.VolumeMounts = append(req.VolumeMounts, sandboxmodel.VolumeMount{
			HostPath:      m.HostPath,
			ContainerPath: m.ContainerPath,
			ReadOnly:      m.ReadOnly,
		})
	}
	return req
}

type paginationDTO struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	TotalItems  int  `json:"totalItems"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
}

type listResponseDTO struct {
	Items      []sandboxDTO  `json:"items"`
	Pagination paginationDTO `json:"pagination"`
}

func toListResponseDTO(res *sandboxmodel.ListResult) listResponseDTO {
	out := listResponseDTO{
		Items: make([]sandboxDTO, 0, len(res.Items)),
		Pagination: paginationDTO{
			Page:        res.Pagination.Page,
			PageSize:    res.Pagination.PageSize,
			TotalItems:  res.Pagination.TotalItems,
			TotalPages:  res.Pagination.TotalPages,
			HasNextPage: res.Pagination.HasNextPage,
		},
	}
	for _, sbx := range res.Items {
		out.Items = append(out.Items, toSandboxDTO(sbx))
	}
	return out
}

type renewRequestDTO struct {
	ExpiresAt string `json:"expiresAt"`
}

type renewResponseDTO struct {
	ExpiresAt string `json:"expiresAt"`
}

type endpointResponseDTO struct {
	Endpoint string `json:"endpoint"`
}
