package sqlinline

const QInsertUser = `--sql bbca416f-9201-47e7-a585-5f3834a9f2e6
insert into users (
  email, name, avatar_url, locale, password_hash, google_sub, role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at
) values (
  $1::text, $2::text, $3::text, $4::text, $5::text, nullif($6::text, ''), $7::text, $8::text,
  $9::timestamptz, $10::boolean, $11::boolean, $12::boolean,
  $13::jsonb, $14::jsonb, $15::timestamptz
)
returning id::text, created_at, updated_at;
`

const QSelectUserByID = `--sql 9f652568-d266-48d5-ad37-fb612cabd2a0
select id::text, email, name, avatar_url, locale, password_hash, coalesce(google_sub, ''), role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QSelectUserByEmail = `--sql 1d464fb7-784c-409d-b7f9-2d8119e1ec5c
select id::text, email, name, avatar_url, locale, password_hash, coalesce(google_sub, ''), role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at, created_at, updated_at
from users
where email = $1::text
limit 1;
`

const QSelectUserByGoogleSub = `--sql 9befc23f-c94d-4b13-be1e-0d7916da23e6
select id::text, email, name, avatar_url, locale, password_hash, coalesce(google_sub, ''), role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at, created_at, updated_at
from users
where google_sub = $1::text
limit 1;
`

const QSelectUsersByIDs = `--sql 729d75b4-e2ee-4d53-b75c-9427d99ee8f0
select id::text, email, name, avatar_url, locale, password_hash, coalesce(google_sub, ''), role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at, created_at, updated_at
from users
where id = any($1::uuid[]);
`

const QUpdateUser = `--sql d984fcb7-2c2a-4aeb-b17a-6293d383b4d4
update users set
  email = $2::text,
  name = $3::text,
  avatar_url = $4::text,
  locale = $5::text,
  password_hash = $6::text,
  google_sub = nullif($7::text, ''),
  role = $8::text,
  plan = $9::text,
  plan_expires_at = $10::timestamptz,
  email_verified = $11::boolean,
  banned = $12::boolean,
  onboarding_completed = $13::boolean,
  volunteer_profile = $14::jsonb,
  ngo_profile = $15::jsonb,
  last_login_at = $16::timestamptz,
  updated_at = now()
where id = $1::uuid
returning updated_at;
`

const QListUsers = `--sql f23e41d5-eb04-46bc-a7c0-ef5ddd2c22c7
select id::text, email, name, avatar_url, locale, password_hash, coalesce(google_sub, ''), role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at, created_at, updated_at,
  count(*) over () as total
from users
where ($1::text = '' or role = $1::text)
  and ($2::text = ''
    or email ilike '%' || $2::text || '%'
    or name ilike '%' || $2::text || '%'
    or volunteer_profile->>'headline' ilike '%' || $2::text || '%'
    or volunteer_profile->>'bio' ilike '%' || $2::text || '%'
    or ngo_profile->>'org_name' ilike '%' || $2::text || '%'
    or ngo_profile->>'description' ilike '%' || $2::text || '%')
  and ($3::text = '' or volunteer_profile->'skills' @> jsonb_build_array(jsonb_build_object('subskill', $3::text)))
  and ($4::text = '' or exists (
    select 1
    from jsonb_array_elements_text(coalesce(volunteer_profile->'causes', ngo_profile->'causes', '[]'::jsonb)) as c(cause)
    where lower(c.cause) = lower($4::text)))
  and ($5::text = '' or volunteer_profile->>'work_mode' = $5::text)
  and ($6::text = '' or volunteer_profile->>'volunteer_type' = $6::text)
  and ($7::text = '' or lower(coalesce(volunteer_profile->'location'->>'country', ngo_profile->'location'->>'country')) = lower($7::text))
  and ($8::boolean is null or banned = $8::boolean)
  and ($9::boolean is null or coalesce((ngo_profile->>'verified')::boolean, false) = $9::boolean and ngo_profile is not null)
  and (not $10::boolean or (onboarding_completed and not banned))
  and (not $11::boolean or coalesce((volunteer_profile->>'open_to_work')::boolean, false))
order by created_at desc
limit nullif($12::int, 0) offset $13::int;
`

const QListPlansExpiringBefore = `--sql adaa323a-5615-44d3-83fb-21c077bdcffa
select id::text, email, name, avatar_url, locale, password_hash, coalesce(google_sub, ''), role, plan,
  plan_expires_at, email_verified, banned, onboarding_completed,
  volunteer_profile, ngo_profile, last_login_at, created_at, updated_at
from users
where plan = 'pro'
  and plan_expires_at is not null
  and plan_expires_at < $1::timestamptz
order by plan_expires_at;
`

const QInsertAuthToken = `--sql f0c04336-56cb-4e86-92bf-e77cb23f072a
insert into auth_tokens (user_id, kind, token_hash, expires_at)
values ($1::uuid, $2::text, $3::text, $4::timestamptz)
returning id::text, created_at;
`

const QConsumeAuthToken = `--sql c7ea6781-7850-4d92-a6ad-0e3498d29050
update auth_tokens
set used_at = $3::timestamptz
where kind = $1::text
  and token_hash = $2::text
  and used_at is null
  and expires_at > $3::timestamptz
returning id::text, user_id::text, kind, token_hash, expires_at, used_at, created_at;
`

const QSelectLegacyVolunteerProfiles = `--sql 61374516-f3f6-4108-aa4d-f1220bfa030f
select l.user_id::text, l.profile
from volunteer_profiles l
join users u on u.id = l.user_id
where u.volunteer_profile is null;
`

const QSelectLegacyNGOProfiles = `--sql 69524779-dc08-4a35-8631-efc9d4af9002
select l.user_id::text, l.profile
from ngo_profiles l
join users u on u.id = l.user_id
where u.ngo_profile is null;
`

const QMergeVolunteerProfile = `--sql 02e0e97b-802a-4ba5-a31b-032add7647db
update users
set volunteer_profile = $2::jsonb,
    role = case when role = '' then 'volunteer' else role end,
    onboarding_completed = onboarding_completed or $3::boolean,
    updated_at = now()
where id = $1::uuid
  and volunteer_profile is null;
`

const QMergeNGOProfile = `--sql b41aee03-88c1-41ae-83a3-5eb17b7409ee
update users
set ngo_profile = $2::jsonb,
    role = case when role = '' then 'ngo' else role end,
    onboarding_completed = onboarding_completed or $3::boolean,
    updated_at = now()
where id = $1::uuid
  and ngo_profile is null;
`
