package api

import (
	"context"
	"strings"
	"time"

	"salonbook/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	availabilityServiceName = "salonbook.v1.AvailabilityService"

	methodGetStartTimes = "/" + availabilityServiceName + "/GetStartTimes"
	methodCheckSlot     = "/" + availabilityServiceName + "/CheckSlot"
	methodListServices  = "/" + availabilityServiceName + "/ListServices"
)

// AvailabilityServer is the read-only gRPC surface used by booking widgets.
// Requests and responses are google.protobuf.Struct messages, so clients can
// call it without generated stubs.
type AvailabilityServer interface {
	GetStartTimes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListServices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStartTimes", Handler: unaryHandler(methodGetStartTimes, AvailabilityServer.GetStartTimes)},
		{MethodName: "CheckSlot", Handler: unaryHandler(methodCheckSlot, AvailabilityServer.CheckSlot)},
		{MethodName: "ListServices", Handler: unaryHandler(methodListServices, AvailabilityServer.ListServices)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salonbook/v1/availability",
}

type structCall func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(AvailabilityServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*structpb.Struct))
		})
	}
}

type AvailabilityService struct {
	bookings domain.BookingService
	catalog  domain.CatalogService
}

func NewAvailabilityService(bookings domain.BookingService, catalog domain.CatalogService) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, catalog: catalog}
}

func (s *AvailabilityService) date(fields map[string]*structpb.Value) (time.Time, error) {
	raw := strings.TrimSpace(fields["date"].GetStringValue())
	if raw == "" {
		return time.Time{}, status.Error(codes.InvalidArgument, "date is required")
	}
	day, err := time.ParseInLocation(dateLayout, raw, s.bookings.Location())
	if err != nil {
		return time.Time{}, status.Error(codes.InvalidArgument, errBadDate.Error())
	}
	return day, nil
}

func (s *AvailabilityService) GetStartTimes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	day, err := s.date(fields)
	if err != nil {
		return nil, err
	}

	lines := fields["services"].GetListValue().GetValues()
	if len(lines) == 0 {
		return nil, status.Error(codes.InvalidArgument, "services is required")
	}
	reqs := make([]domain.ServiceRequest, 0, len(lines))
	for _, v := range lines {
		line := v.GetStructValue().GetFields()
		reqs = append(reqs, domain.ServiceRequest{
			InstanceID: line["instance_id"].GetStringValue(),
			ServiceID:  int64(line["service_id"].GetNumberValue()),
			StaffID:    int64(line["staff_id"].GetNumberValue()),
		})
	}

	starts, err := s.bookings.AvailableStartTimes(ctx, day, reqs)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{
		"date":   day.Format(dateLayout),
		"starts": stringList(starts),
	})
}

func (s *AvailabilityService) CheckSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	day, err := s.date(fields)
	if err != nil {
		return nil, err
	}

	ok, err := s.bookings.CheckSlot(ctx, day,
		fields["time"].GetStringValue(),
		int64(fields["staff_id"].GetNumberValue()),
		int(fields["duration"].GetNumberValue()),
	)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"available": ok})
}

func (s *AvailabilityService) ListServices(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	services, err := s.catalog.Services(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	list := make([]any, 0, len(services))
	for _, svc := range services {
		list = append(list, map[string]any{
			"id":       svc.ID,
			"name":     svc.Name,
			"category": svc.Category,
			"duration": svc.Duration,
			"price":    svc.Price.String(),
		})
	}
	return structpb.NewStruct(map[string]any{"services": list})
}

func grpcError(err error) error {
	_, code := statusOf(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
