package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/marketloop/api/internal/domain"
)

func newTestOrderService(t *testing.T, orders *stubOrderRepo, carts *stubCartRepo, products *stubProductRepo) OrderService {
	t.Helper()
	deps := OrderServiceDeps{
		Orders: orders,
		Carts:  carts,
	}
	if products != nil {
		deps.Products = products
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	return svc
}

func TestOrderServiceCreateOrderEmptyCart(t *testing.T) {
	carts := &stubCartRepo{
		listItemsFunc: func(ctx context.Context, userID int64) ([]domain.CartItem, error) {
			return nil, nil
		},
	}
	svc := newTestOrderService(t, &stubOrderRepo{}, carts, nil)

	_, err := svc.CreateOrder(context.Background(), 7)
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestOrderServiceCreateOrderDrainsCart(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: 11, Title: "mug", Cost: 500, SellerID: 3, Quantity: 2},
		{ProductID: 12, Title: "pen", Cost: 100, SellerID: 4, Quantity: 1},
	}

	var insertedLines []domain.OrderLine
	var drained []int64

	orders := &stubOrderRepo{
		insertFunc: func(ctx context.Context, ownerID int64, status domain.OrderStatus) (int64, error) {
			if ownerID != 7 {
				t.Fatalf("unexpected owner id %d", ownerID)
			}
			if status != domain.OrderStatusOpened {
				t.Fatalf("expected opened, got %s", status)
			}
			return 42, nil
		},
		insertLineFunc: func(ctx context.Context, line domain.OrderLine) error {
			if line.Status != domain.LineStatusPending {
				t.Fatalf("expected pending line, got %s", line.Status)
			}
			insertedLines = append(insertedLines, line)
			return nil
		},
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusOpened, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 11, Quantity: 2, Status: domain.LineStatusPending},
				{OrderID: orderID, ProductID: 12, Quantity: 1, Status: domain.LineStatusPending},
			}}, nil
		},
	}
	carts := &stubCartRepo{
		listItemsFunc: func(ctx context.Context, userID int64) ([]domain.CartItem, error) {
			return items, nil
		},
		removeItemsFunc: func(ctx context.Context, userID int64, productIDs []int64) error {
			drained = productIDs
			return nil
		},
	}

	svc := newTestOrderService(t, orders, carts, nil)
	order, err := svc.CreateOrder(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.ID != 42 {
		t.Fatalf("expected order id 42, got %d", order.ID)
	}
	if len(insertedLines) != 2 {
		t.Fatalf("expected 2 inserted lines, got %d", len(insertedLines))
	}
	if insertedLines[0].Quantity != 2 || insertedLines[1].Quantity != 1 {
		t.Fatalf("line quantities not copied from cart: %+v", insertedLines)
	}
	if len(drained) != 2 || drained[0] != 11 || drained[1] != 12 {
		t.Fatalf("expected drain of exactly the snapshotted products, got %v", drained)
	}
}

func TestOrderServiceCreateOrderKeepsConcurrentlyAddedItem(t *testing.T) {
	cart := map[int64]domain.CartItem{
		11: {ProductID: 11, Title: "mug", Cost: 500, SellerID: 3, Quantity: 1},
	}

	var insertedLines []domain.OrderLine
	orders := &stubOrderRepo{
		insertFunc: func(ctx context.Context, ownerID int64, status domain.OrderStatus) (int64, error) {
			return 42, nil
		},
		insertLineFunc: func(ctx context.Context, line domain.OrderLine) error {
			insertedLines = append(insertedLines, line)
			return nil
		},
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusOpened, Lines: insertedLines}, nil
		},
	}
	carts := &stubCartRepo{
		listItemsFunc: func(ctx context.Context, userID int64) ([]domain.CartItem, error) {
			snapshot := make([]domain.CartItem, 0, len(cart))
			for _, item := range cart {
				snapshot = append(snapshot, item)
			}
			// Another request commits an add for a product that was not in
			// the cart when the snapshot's row locks were taken.
			cart[12] = domain.CartItem{ProductID: 12, Title: "pen", Cost: 100, SellerID: 4, Quantity: 1}
			return snapshot, nil
		},
		removeItemsFunc: func(ctx context.Context, userID int64, productIDs []int64) error {
			for _, id := range productIDs {
				delete(cart, id)
			}
			return nil
		},
	}

	svc := newTestOrderService(t, orders, carts, nil)
	order, err := svc.CreateOrder(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order.Lines) != 1 || order.Lines[0].ProductID != 11 {
		t.Fatalf("expected the order to hold only the snapshotted line, got %+v", order.Lines)
	}
	if _, ok := cart[12]; !ok {
		t.Fatalf("concurrently added product 12 must survive the drain")
	}
	if _, ok := cart[11]; ok {
		t.Fatalf("snapshotted product 11 must be drained from the cart")
	}
}

func TestOrderServiceGetUserOrderForbidden(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 99}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.GetUserOrder(context.Background(), 7, 42)
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden, got %v", err)
	}
}

func TestOrderServiceGetUserOrderNotFound(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{}, &repositoryErrorStub{notFound: true}
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.GetUserOrder(context.Background(), 7, 42)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceCancelOrderCascades(t *testing.T) {
	status := domain.OrderStatusOpened
	cascaded := false

	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: status, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 11, Status: domain.LineStatusShipping},
			}}, nil
		},
		updateStatusFunc: func(ctx context.Context, orderID int64, next domain.OrderStatus) error {
			status = next
			return nil
		},
		updateAllLineStatusesFunc: func(ctx context.Context, orderID int64, next domain.LineStatus) error {
			if next != domain.LineStatusCancelled {
				t.Fatalf("expected cancelled cascade, got %s", next)
			}
			cascaded = true
			return nil
		},
	}

	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)
	order, err := svc.CancelOrder(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", order.Status)
	}
	if !cascaded {
		t.Fatalf("expected line cancellation cascade")
	}
}

func TestOrderServiceCancelOrderRejectsNonOpened(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusCompleted}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.CancelOrder(context.Background(), 7, 42)
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestOrderServiceConfirmLineReceivedCompletesOrder(t *testing.T) {
	lineStatus := domain.LineStatusDelivered
	orderStatus := domain.OrderStatusOpened

	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: orderStatus, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 11, Status: lineStatus},
				{OrderID: orderID, ProductID: 12, Status: domain.LineStatusReceived},
			}}, nil
		},
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, Status: lineStatus, SellerID: 3}, nil
		},
		updateLineStatusFunc: func(ctx context.Context, orderID, productID int64, next domain.LineStatus) error {
			lineStatus = next
			return nil
		},
		updateStatusFunc: func(ctx context.Context, orderID int64, next domain.OrderStatus) error {
			orderStatus = next
			return nil
		},
	}

	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)
	order, err := svc.ConfirmLineReceived(context.Background(), 7, 42, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed order once every line is received, got %s", order.Status)
	}
}

func TestOrderServiceConfirmLineReceivedRequiresDelivered(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusOpened}, nil
		},
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, Status: domain.LineStatusShipping}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.ConfirmLineReceived(context.Background(), 7, 42, 11)
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestOrderServiceGetSellerOrderProjectsLines(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusOpened, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 11, SellerID: 3},
				{OrderID: orderID, ProductID: 12, SellerID: 4},
				{OrderID: orderID, ProductID: 13, SellerID: 3},
			}}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	order, err := svc.GetSellerOrder(context.Background(), 3, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 projected lines, got %d", len(order.Lines))
	}
	for _, line := range order.Lines {
		if line.SellerID != 3 {
			t.Fatalf("projection leaked another seller's line: %+v", line)
		}
	}
}

func TestOrderServiceGetSellerOrderEmptyProjection(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 12, SellerID: 4},
			}}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.GetSellerOrder(context.Background(), 3, 42)
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState for empty projection, got %v", err)
	}
}

func TestOrderServiceGetSellerOrdersSkipsUnrelated(t *testing.T) {
	orders := &stubOrderRepo{
		listContainingSellerFunc: func(ctx context.Context, sellerID int64) ([]domain.Order, error) {
			return []domain.Order{
				{ID: 1, Lines: []domain.OrderLine{{OrderID: 1, ProductID: 11, SellerID: 3}}},
				{ID: 2, Lines: []domain.OrderLine{{OrderID: 2, ProductID: 12, SellerID: 4}}},
			}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	result, err := svc.GetSellerOrders(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].ID != 1 {
		t.Fatalf("expected only order 1 in seller view, got %+v", result)
	}
}

func TestOrderServiceGetSellerLineItemDistinguishesErrors(t *testing.T) {
	orders := &stubOrderRepo{
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			if productID == 99 {
				return domain.OrderLine{}, &repositoryErrorStub{notFound: true}
			}
			return domain.OrderLine{OrderID: orderID, ProductID: productID, SellerID: 4}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.GetSellerLineItem(context.Background(), 3, 42, 99)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for missing line, got %v", err)
	}

	_, err = svc.GetSellerLineItem(context.Background(), 3, 42, 11)
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden for another seller's line, got %v", err)
	}
}

func TestOrderServiceUpdateLineItemStatusEnforcesTransitions(t *testing.T) {
	orders := &stubOrderRepo{
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, SellerID: 3, Status: domain.LineStatusPending}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	_, err := svc.UpdateLineItemStatus(context.Background(), UpdateLineStatusCommand{
		SellerID:  3,
		OrderID:   42,
		ProductID: 11,
		Status:    domain.LineStatusShipping,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState for pending -> shipping, got %v", err)
	}
}

func TestOrderServiceUpdateLineItemStatusWritesAndAggregates(t *testing.T) {
	wrote := false
	aggregated := false

	orders := &stubOrderRepo{
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, SellerID: 3, Status: domain.LineStatusPending}, nil
		},
		updateLineStatusFunc: func(ctx context.Context, orderID, productID int64, status domain.LineStatus) error {
			if status != domain.LineStatusReadyToSend {
				t.Fatalf("expected ready_to_send write, got %s", status)
			}
			wrote = true
			return nil
		},
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			aggregated = true
			return domain.Order{ID: orderID, Status: domain.OrderStatusOpened, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 11, Status: domain.LineStatusReadyToSend},
			}}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	line, err := svc.UpdateLineItemStatus(context.Background(), UpdateLineStatusCommand{
		SellerID:  3,
		OrderID:   42,
		ProductID: 11,
		Status:    domain.LineStatusReadyToSend,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Status != domain.LineStatusReadyToSend {
		t.Fatalf("expected updated line status, got %s", line.Status)
	}
	if !wrote || !aggregated {
		t.Fatalf("expected write and aggregation, wrote=%v aggregated=%v", wrote, aggregated)
	}
}

func TestOrderServiceUpdateLineItemStatusSameStatusNoWrite(t *testing.T) {
	orders := &stubOrderRepo{
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, SellerID: 3, Status: domain.LineStatusShipping}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	line, err := svc.UpdateLineItemStatus(context.Background(), UpdateLineStatusCommand{
		SellerID:  3,
		OrderID:   42,
		ProductID: 11,
		Status:    domain.LineStatusShipping,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Status != domain.LineStatusShipping {
		t.Fatalf("expected unchanged status, got %s", line.Status)
	}
}

func TestOrderServiceSetLineStatusDelivers(t *testing.T) {
	current := domain.LineStatusShipping

	orders := &stubOrderRepo{
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, SellerID: 3, Status: current}, nil
		},
		updateLineStatusFunc: func(ctx context.Context, orderID, productID int64, status domain.LineStatus) error {
			current = status
			return nil
		},
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusOpened, Lines: []domain.OrderLine{
				{OrderID: orderID, ProductID: 11, Status: current},
			}}, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	line, err := svc.SetLineStatus(context.Background(), 42, 11, domain.LineStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Status != domain.LineStatusDelivered {
		t.Fatalf("expected delivered, got %s", line.Status)
	}
}

func TestOrderServiceAddLineItemValidatesQuantity(t *testing.T) {
	svc := newTestOrderService(t, &stubOrderRepo{}, &stubCartRepo{}, nil)

	_, err := svc.AddLineItem(context.Background(), 42, 11, 0)
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceAddLineItemIncrementsExisting(t *testing.T) {
	quantity := 2
	incremented := false

	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusOpened}, nil
		},
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			return domain.OrderLine{OrderID: orderID, ProductID: productID, Quantity: quantity, Status: domain.LineStatusPending}, nil
		},
		addLineQuantityFunc: func(ctx context.Context, orderID, productID int64, delta int) error {
			quantity += delta
			incremented = true
			return nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	line, err := svc.AddLineItem(context.Background(), 42, 11, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !incremented {
		t.Fatalf("expected quantity increment for existing line")
	}
	if line.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", line.Quantity)
	}
}

func TestOrderServiceAddLineItemInsertsNew(t *testing.T) {
	missing := true
	var inserted domain.OrderLine

	orders := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return domain.Order{ID: orderID, OwnerID: 7, Status: domain.OrderStatusOpened}, nil
		},
		findLineFunc: func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
			if missing {
				return domain.OrderLine{}, &repositoryErrorStub{notFound: true}
			}
			return inserted, nil
		},
		insertLineFunc: func(ctx context.Context, line domain.OrderLine) error {
			inserted = line
			missing = false
			return nil
		},
	}
	products := &stubProductRepo{
		existsByIDFunc: func(ctx context.Context, productID int64) (bool, error) {
			return true, nil
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, products)

	line, err := svc.AddLineItem(context.Background(), 42, 11, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Status != domain.LineStatusPending {
		t.Fatalf("expected new line to start pending, got %s", line.Status)
	}
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", line.Quantity)
	}
}

func TestOrderServiceRemoveLineItemNotFound(t *testing.T) {
	orders := &stubOrderRepo{
		removeLineFunc: func(ctx context.Context, orderID, productID int64) error {
			return &repositoryErrorStub{notFound: true}
		},
	}
	svc := newTestOrderService(t, orders, &stubCartRepo{}, nil)

	err := svc.RemoveLineItem(context.Background(), 42, 11)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
