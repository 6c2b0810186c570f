package sqlinline

const QInsertTransaction = `--sql cceca19a-d58f-41b6-8c5e-924efcd2a116
insert into transactions (
  user_id, purpose, plan, target_user_id, gateway, gateway_order_id, gateway_payment_id,
  amount_minor, discount_minor, currency, coupon_code, status, paid_at
) values (
  $1::uuid, $2::text, $3::text, nullif($4::text, '')::uuid, $5::text, $6::text, $7::text,
  $8::bigint, $9::bigint, $10::text, $11::text, $12::text, $13::timestamptz
)
returning id::text, created_at, updated_at;
`

const QSelectTransactionByID = `--sql 3331435b-62f4-4bd0-9ac5-1f5d1fd57b4a
select id::text, user_id::text, purpose, plan, coalesce(target_user_id::text, ''), gateway,
  gateway_order_id, gateway_payment_id, amount_minor, discount_minor, currency, coupon_code,
  status, paid_at, grant_expires_at, fulfilled_at, created_at, updated_at
from transactions
where id = $1::uuid
limit 1;
`

const QSelectTransactionByGatewayOrder = `--sql 8c2e0f7a-6c2e-40db-a469-fe30d320116c
select id::text, user_id::text, purpose, plan, coalesce(target_user_id::text, ''), gateway,
  gateway_order_id, gateway_payment_id, amount_minor, discount_minor, currency, coupon_code,
  status, paid_at, grant_expires_at, fulfilled_at, created_at, updated_at
from transactions
where gateway = $1::text
  and gateway_order_id = $2::text
limit 1;
`

const QSetTransactionGatewayOrder = `--sql 37ff7e6e-83c6-4a95-8a1a-f1c179f3c40e
update transactions
set gateway_order_id = $2::text, updated_at = now()
where id = $1::uuid;
`

const QMarkTransactionPaid = `--sql 89c193d1-fc42-4acc-9a73-fcc224af3fd6
update transactions
set status = 'paid', gateway_payment_id = $2::text, paid_at = $3::timestamptz, updated_at = $3::timestamptz
where id = $1::uuid
  and status = 'pending';
`

const QMarkTransactionFailed = `--sql 8b455471-e8ab-403e-90da-3b8ae5789bf1
update transactions
set status = 'failed', updated_at = $2::timestamptz
where id = $1::uuid
  and status = 'pending';
`

const QPinTransactionGrant = `--sql 5d0b9e37-2f64-4c1a-b8e3-91c7a4f06d25
update transactions
set grant_expires_at = coalesce(grant_expires_at, $2::timestamptz), updated_at = now()
where id = $1::uuid
returning grant_expires_at;
`

const QMarkTransactionFulfilled = `--sql a93f6c14-7e52-4d08-9b1a-3c6e8d27f450
update transactions
set fulfilled_at = $2::timestamptz, updated_at = $2::timestamptz
where id = $1::uuid
  and status = 'paid'
  and fulfilled_at is null;
`

const QListTransactions = `--sql ce7e03df-02cd-4ba9-8995-aa30a913cf1d
select id::text, user_id::text, purpose, plan, coalesce(target_user_id::text, ''), gateway,
  gateway_order_id, gateway_payment_id, amount_minor, discount_minor, currency, coupon_code,
  status, paid_at, grant_expires_at, fulfilled_at, created_at, updated_at,
  count(*) over () as total
from transactions
where ($1::text = '' or user_id::text = $1::text)
  and ($2::text = '' or status = $2::text)
order by created_at desc
limit nullif($3::int, 0) offset $4::int;
`

const QInsertCoupon = `--sql 8f3db2fb-3962-45da-89a7-bc2f8a757f3b
insert into coupons (code, kind, value, currency, max_redemptions, expires_at, purposes, active)
values ($1::text, $2::text, $3::bigint, $4::text, $5::int, $6::timestamptz, $7::text[], $8::boolean)
returning id::text, created_at;
`

const QSelectCouponByID = `--sql fcd9cba6-5e83-41c2-bba9-db03768152b5
select id::text, code, kind, value, currency, max_redemptions, redeemed, expires_at, purposes, active, created_at
from coupons
where id = $1::uuid
limit 1;
`

const QSelectCouponByCode = `--sql 0a6cb3f1-63ca-4346-8455-73e5fc4199fb
select id::text, code, kind, value, currency, max_redemptions, redeemed, expires_at, purposes, active, created_at
from coupons
where code = $1::text
limit 1;
`

const QListCoupons = `--sql a1579081-d690-4631-b894-1bc37c10bbe3
select id::text, code, kind, value, currency, max_redemptions, redeemed, expires_at, purposes, active, created_at
from coupons
order by created_at desc;
`

const QUpdateCoupon = `--sql 743d758c-0a66-4ded-b044-e3e924b514ac
update coupons set
  kind = $2::text,
  value = $3::bigint,
  currency = $4::text,
  max_redemptions = $5::int,
  expires_at = $6::timestamptz,
  purposes = $7::text[],
  active = $8::boolean
where id = $1::uuid;
`

const QRedeemCoupon = `--sql 677a414a-baa2-4970-85f7-4fb56b904c86
update coupons
set redeemed = redeemed + 1
where id = $1::uuid
  and (max_redemptions = 0 or redeemed < max_redemptions);
`
